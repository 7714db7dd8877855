// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Search scopes.
const (
	SearchScopeVisible = "visible"
	SearchScopeGlobal  = "global"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Session tokens
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"picvault"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Capability key required on every /api route (X-API-Key header)
	APIKey string `env:"API_KEY,required"`

	// Media store (S3-compatible)
	S3Bucket        string `env:"S3_BUCKET,required"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT" envDefault:""`
	S3AccessKey     string `env:"S3_ACCESS_KEY" envDefault:""`
	S3SecretKey     string `env:"S3_SECRET_KEY" envDefault:""`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL" envDefault:""`
	S3UsePathStyle  bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`

	// Uploads
	UploadMaxBytes   int64         `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
	UploadRateLimit  int           `env:"UPLOAD_RATE_LIMIT" envDefault:"5"`
	UploadRateWindow time.Duration `env:"UPLOAD_RATE_WINDOW" envDefault:"1m"`

	// Catalog queries
	SearchScope   string `env:"SEARCH_SCOPE" envDefault:"visible"`
	TimelineLimit int    `env:"TIMELINE_LIMIT" envDefault:"0"` // 0 = unbounded

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	AuthRateLimitRPS   int  `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int  `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes for JSON routes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.SearchScope != SearchScopeVisible && c.SearchScope != SearchScopeGlobal {
		return fmt.Errorf("SEARCH_SCOPE must be %q or %q, got %q", SearchScopeVisible, SearchScopeGlobal, c.SearchScope)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.TimelineLimit < 0 {
		return errors.New("TIMELINE_LIMIT must not be negative")
	}
	if len(c.JWTSecret) < 16 && c.IsProduction() {
		return errors.New("JWT_SECRET must be at least 16 bytes in production")
	}
	return nil
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
