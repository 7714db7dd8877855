package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/picvault/picvault/internal/auth"
)

// Auth failure messages. Everything except expiry shares one message.
const (
	msgUnauthorized = "invalid or missing token"
	msgTokenExpired = "token expired"
)

// TokenVerifier resolves a session token to a user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier TokenVerifier
}

// Authenticate returns a middleware that requires a bearer session token.
// On success the caller's user id is stored in the request context.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, reason)
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			userID, err := cfg.Verifier.VerifyToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					logAuthFailure(cfg.Logger, r, "expired_token")
					writeMessage(w, http.StatusUnauthorized, msgTokenExpired)
					return
				}
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			annotateUser(r.Context(), userID)
			ctx := auth.ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>"
// or a reason code when there is none.
func extractBearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing_token"
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "malformed_header"
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", "malformed_header"
	}
	return token, ""
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}
