package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/sellforge/ratings-service/pkg/config"
)

// Config holds all configuration for the ratings service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"RATINGS_HTTP_PORT" envDefault:"8012"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ratings"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ratings_secret"`
	PostgresDB   string `env:"RATINGS_DB_NAME" envDefault:"ratings_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis cache
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int    `env:"RATINGS_REDIS_DB" envDefault:"0"`
	CacheTTLSeconds int    `env:"RATINGS_CACHE_TTL_SECONDS" envDefault:"300"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// Catalog service (product existence checks)
	CatalogBaseURL        string `env:"CATALOG_SERVICE_URL" envDefault:"http://localhost:8004"`
	CatalogTimeoutSeconds int    `env:"CATALOG_TIMEOUT_SECONDS" envDefault:"5"`

	// Moderation: approve submissions immediately instead of queueing them.
	AutoApprove bool `env:"RATINGS_AUTO_APPROVE" envDefault:"false"`

	// Review reminders
	ReminderDelayHours   int `env:"REMINDER_DELAY_HOURS" envDefault:"168"`
	ReminderIntervalMins int `env:"REMINDER_SWEEP_INTERVAL_MINUTES" envDefault:"15"`
	ReminderBatchSize    int `env:"REMINDER_BATCH_SIZE" envDefault:"100"`

	// Submission rate limiting
	SubmitRPS   int `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"5"`
	SubmitBurst int `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load ratings config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CatalogBaseURL == "" {
		return fmt.Errorf("CATALOG_SERVICE_URL is required")
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("RATINGS_CACHE_TTL_SECONDS must be > 0, got %d", c.CacheTTLSeconds)
	}
	if c.ReminderDelayHours <= 0 {
		return fmt.Errorf("REMINDER_DELAY_HOURS must be > 0, got %d", c.ReminderDelayHours)
	}
	if c.ReminderIntervalMins <= 0 {
		return fmt.Errorf("REMINDER_SWEEP_INTERVAL_MINUTES must be > 0, got %d", c.ReminderIntervalMins)
	}
	if c.ReminderBatchSize <= 0 {
		return fmt.Errorf("REMINDER_BATCH_SIZE must be > 0, got %d", c.ReminderBatchSize)
	}
	if c.SubmitRPS <= 0 || c.SubmitBurst <= 0 {
		return fmt.Errorf("submission rate limit must be > 0, got rps=%d burst=%d", c.SubmitRPS, c.SubmitBurst)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// CacheTTL returns the Redis cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ReminderDelay returns how long after purchase the review reminder fires.
func (c *Config) ReminderDelay() time.Duration {
	return time.Duration(c.ReminderDelayHours) * time.Hour
}

// ReminderInterval returns the period between reminder sweeps.
func (c *Config) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalMins) * time.Minute
}

// CatalogTimeout returns the per-request timeout for catalog lookups.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutSeconds) * time.Second
}
