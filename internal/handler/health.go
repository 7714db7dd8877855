package handler

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the dependency checks of a readiness probe.
const readyTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db      HealthChecker
	cache   HealthChecker
	storage HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// A nil checker is reported as "not configured" and does not fail readiness.
func NewHealthHandler(db, cache, storage HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		storage: storage,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz checks Postgres, Redis and the media bucket and returns 200 only if
// all configured dependencies respond.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, 3)
	healthy := true

	for _, dep := range []struct {
		name    string
		checker HealthChecker
	}{
		{"postgres", h.db},
		{"redis", h.cache},
		{"storage", h.storage},
	} {
		if dep.checker == nil {
			checks[dep.name] = "not configured"
			continue
		}
		if err := dep.checker.Ping(ctx); err != nil {
			checks[dep.name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[dep.name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
}
