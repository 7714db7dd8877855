package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/cache"
	"github.com/picvault/picvault/internal/metrics"
)

// RateLimiter checks request budgets. *cache.Cache implements it.
type RateLimiter interface {
	CheckUploadRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Metrics metrics.Recorder
	Enabled bool

	// Uploads per user in a fixed window.
	UploadLimit  int
	UploadWindow time.Duration

	// Token bucket per client IP for the auth routes.
	AuthRPS   int
	AuthBurst int
}

// RateLimitUpload limits uploads per authenticated user. It must run after
// Authenticate and before the multipart body is read.
func RateLimitUpload(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserIDFromContext(r.Context())
			if !cfg.Enabled || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckUploadRateLimit(r.Context(), userID, cfg.UploadLimit, cfg.UploadWindow)
			if err != nil {
				cfg.Logger.Error("upload rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("user_id", userID),
				)
				// Fail open
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.UploadLimit, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "upload"),
					slog.String("user_id", userID),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", retryAfterSeconds(result.RetryAfter)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if cfg.Metrics != nil {
					cfg.Metrics.IncUploadRejected("rate_limit")
				}
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Used for the register and login endpoints.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.AuthRPS <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.AuthRPS, cfg.AuthBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "auth"),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", retryAfterSeconds(result.RetryAfter)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	secs := retryAfterSeconds(retryAfter)
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	writeMessage(w, http.StatusTooManyRequests, fmt.Sprintf("too many requests, retry after %d seconds", secs))
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	return int64((d + time.Second - 1) / time.Second)
}

// getClientIP returns the host part of RemoteAddr. Forwarding headers are
// only trusted through chi's RealIP middleware, which rewrites RemoteAddr
// before this runs; reading them here would let clients pick their bucket.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
