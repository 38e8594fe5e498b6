package middleware

import (
	"net/http"

	logpkg "github.com/zenithlabs/zenith-api/internal/logger"
	"github.com/zenithlabs/zenith-api/internal/request"
	"go.uber.org/zap"
)

// Audit emits a warning log for security-relevant responses. Rejected
// credentials and rate-limited clients show up here so they can be
// alerted on without trawling the access log.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			switch wrapped.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				logger.Warn("security_event",
					zap.Int("status_code", wrapped.statusCode),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("client_ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
				)
			case http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation",
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("client_ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
				)
			}
		})
	}
}
