package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		handlerStatus int
		wantEvent     string
	}{
		{"unauthorized logs security event", http.StatusUnauthorized, "security_event"},
		{"forbidden logs security event", http.StatusForbidden, "security_event"},
		{"rate limited logs violation", http.StatusTooManyRequests, "rate_limit_violation"},
		{"success stays quiet", http.StatusOK, ""},
		{"client error stays quiet", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.WarnLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.handlerStatus)
			})

			middleware := Audit(zap.New(core))(handler)

			req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
			req.Header.Set("X-Real-IP", "203.0.113.9")
			w := httptest.NewRecorder()

			middleware.ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("Expected status %d, got %d", tt.handlerStatus, w.Code)
			}

			if tt.wantEvent == "" {
				if logs.Len() != 0 {
					t.Errorf("Expected no audit entries, got %d", logs.Len())
				}
				return
			}

			entries := logs.FilterMessage(tt.wantEvent).All()
			if len(entries) != 1 {
				t.Fatalf("Expected one %q entry, got %d", tt.wantEvent, logs.Len())
			}

			fields := entries[0].ContextMap()
			if fields["path"] != "/api/v1/auth/login" {
				t.Errorf("Expected path field, got %v", fields["path"])
			}
			if fields["client_ip"] != "203.0.113.9" {
				t.Errorf("Expected client_ip field, got %v", fields["client_ip"])
			}
		})
	}
}
