package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/picvault/picvault/internal/cache"
	"github.com/picvault/picvault/internal/metrics"
)

// fakeLimiter allows the first n calls per key, then rejects.
type fakeLimiter struct {
	mu     sync.Mutex
	allow  int
	err    error
	counts map[string]int
}

func newFakeLimiter(allow int) *fakeLimiter {
	return &fakeLimiter{allow: allow, counts: make(map[string]int)}
}

func (f *fakeLimiter) check(key string, limit int) (*cache.RateLimitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.counts[key]++
	n := f.counts[key]
	res := &cache.RateLimitResult{
		Allowed:   n <= f.allow,
		Limit:     int64(limit),
		Remaining: int64(f.allow - n),
		ResetAt:   time.Unix(1700000060, 0),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = 1500 * time.Millisecond
	}
	return res, nil
}

func (f *fakeLimiter) CheckUploadRateLimit(_ context.Context, userID string, limit int, _ time.Duration) (*cache.RateLimitResult, error) {
	return f.check("upload:"+userID, limit)
}

func (f *fakeLimiter) CheckIPRateLimit(_ context.Context, ip string, _, burst int) (*cache.RateLimitResult, error) {
	return f.check("ip:"+ip, burst)
}

func TestRateLimitUpload(t *testing.T) {
	t.Parallel()

	limiter := newFakeLimiter(2)
	recorder := metrics.NewInMemory()
	handler := RateLimitUpload(RateLimitConfig{
		Logger:       discardLogger(),
		Limiter:      limiter,
		Metrics:      recorder,
		Enabled:      true,
		UploadLimit:  2,
		UploadWindow: time.Minute,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(userID string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/api/images/upload", nil), userID))
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("alice"); rec.Code != http.StatusCreated {
			t.Fatalf("upload %d: status = %d", i, rec.Code)
		}
	}

	rec := send("alice")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", got)
	}
	if msg := decodeMessage(t, rec); msg == "" {
		t.Error("empty message")
	}
	if got := recorder.Snapshot().UploadsRejected["rate_limit"]; got != 1 {
		t.Errorf("rate_limit rejections = %d, want 1", got)
	}

	if rec := send("bob"); rec.Code != http.StatusCreated {
		t.Errorf("other user throttled: status = %d", rec.Code)
	}
}

func TestRateLimitUpload_Bypass(t *testing.T) {
	t.Parallel()

	failing := newFakeLimiter(0)
	failing.err = errors.New("redis down")

	tests := []struct {
		name    string
		enabled bool
		limiter RateLimiter
		userID  string
	}{
		{"disabled", false, newFakeLimiter(0), "alice"},
		{"no caller", true, newFakeLimiter(0), ""},
		{"limiter error fails open", true, failing, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var called bool
			handler := RateLimitUpload(RateLimitConfig{
				Logger:       discardLogger(),
				Limiter:      tt.limiter,
				Enabled:      tt.enabled,
				UploadLimit:  1,
				UploadWindow: time.Minute,
			})(okHandler(&called))

			req := httptest.NewRequest(http.MethodPost, "/api/images/upload", nil)
			if tt.userID != "" {
				req = withCaller(req, tt.userID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK || !called {
				t.Errorf("status = %d, called = %v", rec.Code, called)
			}
		})
	}
}

func TestRateLimitIP(t *testing.T) {
	t.Parallel()

	handler := RateLimitIP(RateLimitConfig{
		Logger:    discardLogger(),
		Limiter:   newFakeLimiter(1),
		Enabled:   true,
		AuthRPS:   1,
		AuthBurst: 1,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("10.0.0.1"); got != http.StatusOK {
		t.Fatalf("first request: %d", got)
	}
	if got := send("10.0.0.1"); got != http.StatusTooManyRequests {
		t.Errorf("second request: %d, want 429", got)
	}
	if got := send("10.0.0.2"); got != http.StatusOK {
		t.Errorf("other ip: %d", got)
	}
}

func TestRateLimitIP_ForwardedHeaderDoesNotResetBucket(t *testing.T) {
	t.Parallel()

	handler := RateLimitIP(RateLimitConfig{
		Logger:    discardLogger(),
		Limiter:   newFakeLimiter(1),
		Enabled:   true,
		AuthRPS:   1,
		AuthBurst: 1,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("198.51.100.1"); got != http.StatusOK {
		t.Fatalf("first request: %d", got)
	}
	if got := send("198.51.100.2"); got != http.StatusTooManyRequests {
		t.Errorf("rotated forwarded header: %d, want 429", got)
	}
}

func TestRateLimitIP_ZeroRateDisables(t *testing.T) {
	t.Parallel()

	var called bool
	handler := RateLimitIP(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: newFakeLimiter(0),
		Enabled: true,
	})(okHandler(&called))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	if !called {
		t.Error("next not called")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want int64
	}{
		{0, 1},
		{-time.Second, 1},
		{time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{59 * time.Second, 59},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded header ignored", "203.0.113.1, 10.0.0.1", "", "10.0.0.9:1234", "10.0.0.9"},
		{"real ip header ignored", "", "203.0.113.2", "10.0.0.9:1234", "10.0.0.9"},
		{"remote addr port stripped", "", "", "10.0.0.9:1234", "10.0.0.9"},
		{"remote addr ipv6", "", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", "", "", "10.0.0.9", "10.0.0.9"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if tt.xri != "" {
			req.Header.Set("X-Real-IP", tt.xri)
		}
		if got := getClientIP(req); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
