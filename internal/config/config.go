// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache / event stream (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Process secret for visitor fingerprinting. Must be shared by every
	// process of a deployment so daily salts agree. Missing or short
	// secrets fail process start; there is no weak fallback.
	FingerprintSecret string `env:"FINGERPRINT_SECRET,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Deduplication. The window is an empirically chosen constant, kept
	// configurable rather than treated as a business invariant.
	DedupWindow     time.Duration `env:"DEDUP_WINDOW" envDefault:"5s"`
	DedupTimeBucket time.Duration `env:"DEDUP_TIME_BUCKET" envDefault:"5s"`

	// Real-time aggregation
	RealtimeRetention time.Duration `env:"REALTIME_RETENTION" envDefault:"24h"`
	RealtimeMaxEvents int           `env:"REALTIME_MAX_EVENTS" envDefault:"50000"`
	TrendSlice        time.Duration `env:"TREND_SLICE" envDefault:"15m"`
	TrendThreshold    float64       `env:"TREND_THRESHOLD" envDefault:"0.10"`

	// Historical stats caching
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"60s"`

	// Bulk import. The source URL points at the external analytics
	// export service; empty disables imports.
	ImportBatchSize     int           `env:"IMPORT_BATCH_SIZE" envDefault:"1000"`
	ImportSourceURL     string        `env:"IMPORT_SOURCE_URL"`
	ImportSourceAPIKey  string        `env:"IMPORT_SOURCE_API_KEY"`
	ImportSourceTimeout time.Duration `env:"IMPORT_SOURCE_TIMEOUT" envDefault:"30s"`
	ImportAccountID     string        `env:"IMPORT_ACCOUNT_ID"`

	// Bearer tokens accepted for owner-facing routes, formatted as
	// comma-separated token:userID:email triples.
	APITokens string `env:"API_TOKENS"`

	// Rate limiting for the public ingest endpoint
	IngestRateLimitEnabled bool    `env:"INGEST_RATE_LIMIT_ENABLED" envDefault:"true"`
	IngestRateLimitRPS     float64 `env:"INGEST_RATE_LIMIT_RPS" envDefault:"50"`
	IngestRateLimitBurst   int     `env:"INGEST_RATE_LIMIT_BURST" envDefault:"100"`

	// Request body size limit in bytes (default 64KB; event payloads are small)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	if c.DedupWindow <= 0 {
		return fmt.Errorf("DEDUP_WINDOW must be positive, got %s", c.DedupWindow)
	}
	if c.RealtimeRetention <= 0 {
		return fmt.Errorf("REALTIME_RETENTION must be positive, got %s", c.RealtimeRetention)
	}
	if c.TrendThreshold < 0 || c.TrendThreshold >= 1 {
		return fmt.Errorf("TREND_THRESHOLD must be in [0, 1), got %f", c.TrendThreshold)
	}
	if c.ImportBatchSize <= 0 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", c.ImportBatchSize)
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
