package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/request"
	"github.com/zenithlabs/zenith-api/internal/services/auth"
	"go.uber.org/zap"
)

// Auth creates authentication middleware that validates session tokens.
// The token must both verify cryptographically and match the token
// currently stored on the user row, so logout invalidates it immediately.
func Auth(users database.UserRepositoryInterface, tokens *auth.TokenManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			tokenString := parts[1]
			ctx := r.Context()

			userID, err := tokens.Verify(tokenString)
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetBySessionToken(ctx, tokenString)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Session not found")
				return
			}
			if user.ID != userID {
				logger.Warn("token_subject_mismatch",
					zap.String("token_subject", userID.String()),
					zap.String("session_user", user.ID.String()),
				)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
