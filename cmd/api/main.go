// Package main is the entrypoint for the Picvault API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/cache"
	"github.com/picvault/picvault/internal/config"
	"github.com/picvault/picvault/internal/handler"
	"github.com/picvault/picvault/internal/metrics"
	"github.com/picvault/picvault/internal/migrations"
	"github.com/picvault/picvault/internal/repository"
	"github.com/picvault/picvault/internal/server"
	"github.com/picvault/picvault/internal/service"
	"github.com/picvault/picvault/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.MigrateOnStart {
		if err := migrations.Up(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	media, err := storage.NewS3Store(ctx, storage.Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
	})
	if err != nil {
		logger.Error("failed to configure media store",
			slog.String("error", sanitizeError(err, cfg.S3SecretKey)),
			slog.String("bucket", cfg.S3Bucket),
		)
		_ = cacheClient.Close()
		repo.Close()
		os.Exit(1)
	}

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if !auth.ValidateKeyFormat(cfg.APIKey) {
		logger.Warn("API_KEY does not look like a generated key; see scripts/bootstrap-api-key.go")
	}

	accounts := service.NewAccountService(repo, tokens, recorder, logger)
	images := service.NewImageService(repo, media, service.ImageConfig{
		MaxBytes:      cfg.UploadMaxBytes,
		SearchScope:   cfg.SearchScope,
		TimelineLimit: cfg.TimelineLimit,
	}, recorder, logger)

	r := setupRouter(routerDeps{
		root:     handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient, media),
		metrics:  handler.NewMetricsHandler(recorder),
		auth:     handler.NewAuthHandler(accounts, logger),
		images:   handler.NewImageHandler(images, logger),
		verifier: accounts,
		limiter:  cacheClient,
		recorder: recorder,
	}, cfg, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"bucket", cfg.S3Bucket,
		"search_scope", cfg.SearchScope,
		"token_ttl", tokens.TTL(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips the password from connection URLs before they are logged.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" || redacted == secret {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
