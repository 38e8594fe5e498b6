package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorResponse is the envelope written when a handler panics. It mirrors
// the shape handlers use for their own error responses.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// ErrorHandler recovers panics from downstream handlers, logs them with a
// stack trace, and converts them into a 500 response. Panic values never
// reach the client.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic_recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				writePanicResponse(w, r, logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writePanicResponse(w http.ResponseWriter, r *http.Request, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	resp := ErrorResponse{
		Success:   false,
		Error:     "Internal Server Error",
		Message:   "An unexpected error occurred",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed_to_encode_error_response",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
	}
}
