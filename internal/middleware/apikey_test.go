package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAPIKey(t *testing.T) {
	t.Parallel()

	const key = "pv_test_0123456789abcdef0123456789abcdef"

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid key", key, http.StatusOK},
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "pv_test_ffffffffffffffffffffffffffffffff", http.StatusUnauthorized},
		{"prefix of key", key[:10], http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var called bool
			handler := RequireAPIKey(key, discardLogger())(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("next called = %v", called)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if msg := decodeMessage(t, rec); msg != "invalid or missing API key" {
					t.Errorf("message = %q", msg)
				}
			}
		})
	}
}

func TestRequireAPIKey_EmptyExpectedRejectsAll(t *testing.T) {
	t.Parallel()

	var called bool
	handler := RequireAPIKey("", discardLogger())(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
}
