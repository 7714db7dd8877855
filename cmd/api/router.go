package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/picvault/picvault/internal/config"
	"github.com/picvault/picvault/internal/handler"
	"github.com/picvault/picvault/internal/metrics"
	"github.com/picvault/picvault/internal/middleware"
)

// routerDeps bundles what setupRouter mounts.
type routerDeps struct {
	root     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	auth     *handler.AuthHandler
	images   *handler.ImageHandler
	verifier middleware.TokenVerifier
	limiter  middleware.RateLimiter
	recorder metrics.Recorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)
	r.Get("/", d.root.Root)

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		Logger:   logger,
		Verifier: d.verifier,
	})

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       logger,
		Limiter:      d.limiter,
		Metrics:      d.recorder,
		Enabled:      cfg.RateLimitEnabled,
		UploadLimit:  cfg.UploadRateLimit,
		UploadWindow: cfg.UploadRateWindow,
		AuthRPS:      cfg.AuthRateLimitRPS,
		AuthBurst:    cfg.AuthRateLimitBurst,
	}

	// The upload route reads its own, larger body limit.
	jsonBody := middleware.MaxBodySize(cfg.MaxRequestBodySize)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(cfg.APIKey, logger))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitIP(rateLimitCfg), jsonBody).Post("/register", d.auth.Register)
			r.With(middleware.RateLimitIP(rateLimitCfg), jsonBody).Post("/login", d.auth.Login)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/profile", d.auth.Profile)
				r.With(jsonBody).Put("/profile", d.auth.UpdateProfile)
				r.With(jsonBody).Put("/password", d.auth.ChangePassword)
			})
		})

		r.Route("/images", func(r chi.Router) {
			// Public read by id.
			r.Get("/{id}", d.images.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.With(middleware.RateLimitUpload(rateLimitCfg)).Post("/upload", d.images.Upload)
				r.Get("/", d.images.List)
				r.Get("/search", d.images.Search)
				r.Get("/timeline", d.images.Timeline)
				r.Delete("/{id}/delete", d.images.Delete)
			})
		})
	})

	r.NotFound(d.root.NotFound)
	r.MethodNotAllowed(d.root.MethodNotAllowed)

	return r
}
