package middleware

import (
	"log/slog"
	"net/http"

	"github.com/picvault/picvault/internal/auth"
)

// APIKeyHeader carries the deployment capability key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key header does not match
// expected. The comparison runs in constant time.
func RequireAPIKey(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)

			if !auth.MatchCapabilityKey(presented, expected) {
				reason := "invalid_key"
				if presented == "" {
					reason = "missing_key"
				}
				logger.Warn("api key rejected",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeMessage(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
