package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/config"
	"github.com/picvault/picvault/internal/handler"
	"github.com/picvault/picvault/internal/metrics"
)

const testAPIKey = "pv_test_0123456789abcdef0123456789abcdef"

type rejectingVerifier struct{}

func (rejectingVerifier) VerifyToken(string) (string, error) { return "", auth.ErrTokenInvalid }

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	cfg := &config.Config{
		AppEnv:             "development",
		APIKey:             testAPIKey,
		MaxRequestBodySize: 16,
	}
	return setupRouter(routerDeps{
		root:     handler.New(),
		health:   handler.NewHealthHandler(nil, nil, nil),
		metrics:  handler.NewMetricsHandler(recorder),
		auth:     handler.NewAuthHandler(nil, logger),
		images:   handler.NewImageHandler(nil, logger),
		verifier: rejectingVerifier{},
		recorder: recorder,
	}, cfg, logger)
}

func TestRouter(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	tests := []struct {
		name        string
		method      string
		path        string
		apiKey      string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"liveness", http.MethodGet, "/healthz", "", "", http.StatusOK, ""},
		{"root", http.MethodGet, "/", "", "", http.StatusOK, "Picvault API"},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK, ""},
		{"api without key", http.MethodGet, "/api/images", "", "", http.StatusUnauthorized, "invalid or missing API key"},
		{"public image read still needs key", http.MethodGet, "/api/images/01HXYZ", "", "", http.StatusUnauthorized, "invalid or missing API key"},
		{"api without token", http.MethodGet, "/api/images", testAPIKey, "", http.StatusUnauthorized, "invalid or missing token"},
		{"timeline without token", http.MethodGet, "/api/images/timeline", testAPIKey, "", http.StatusUnauthorized, "invalid or missing token"},
		{"upload without token", http.MethodPost, "/api/images/upload", testAPIKey, "", http.StatusUnauthorized, "invalid or missing token"},
		{"json body too large", http.MethodPost, "/api/auth/login", testAPIKey, strings.Repeat("x", 64), http.StatusRequestEntityTooLarge, "request body too large"},
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound, "resource not found"},
		{"wrong method", http.MethodPost, "/healthz", "", "", http.StatusMethodNotAllowed, "method not allowed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			if tc.apiKey != "" {
				req.Header.Set("X-API-Key", tc.apiKey)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tc.wantMessage != "" {
				assert.Contains(t, rec.Body.String(), tc.wantMessage)
			}
		})
	}
}

func TestRouter_ChunkedBodyTooLarge(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	body := `{"email":"` + strings.Repeat("x", 64) + `@example.com","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://picvault:s3cret@db:5432/picvault", "postgres://picvault@db:5432/picvault"},
		{"redis://:s3cret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"redis://cache:6379", "redis://cache:6379"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, redactURL(tc.in), tc.in)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	dsn := "postgres://picvault:s3cret@db:5432/picvault"
	err := errors.New("dial " + dsn + " failed: password=hunter2")

	got := sanitizeError(err, dsn, "rawsecretkey")
	require.NotContains(t, got, "s3cret")
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "postgres://picvault@db:5432/picvault")

	got = sanitizeError(errors.New("signature mismatch for rawsecretkey"), "rawsecretkey")
	assert.Equal(t, "signature mismatch for [redacted]", got)
	assert.Empty(t, sanitizeError(nil))
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}
