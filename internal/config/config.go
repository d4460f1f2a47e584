package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Storage drivers.
const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the storefront state service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`

	// Remote storefront API
	UpstreamBaseURL    string        `env:"UPSTREAM_BASE_URL" envDefault:"http://localhost:5000"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamMaxRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"2"`
	// Header carrying the caller's session on cart calls.
	UpstreamSessionHeader string `env:"UPSTREAM_SESSION_HEADER" envDefault:"X-Session-ID"`

	// Slot storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"redis"`
	SlotTTLHours  int    `env:"SLOT_TTL_HOURS" envDefault:"0"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka analytics; empty disables publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Per-session limit on wishlist toggles and cart adds; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	DebugAllowedCIDRs  []string `env:"DEBUG_ALLOWED_CIDRS" envSeparator:","`

	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SlotTTL returns the slot expiry, zero meaning slots never expire.
func (c *Config) SlotTTL() time.Duration {
	return time.Duration(c.SlotTTLHours) * time.Hour
}

// KafkaEnabled reports whether analytics events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream base URL: %q", c.UpstreamBaseURL)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("upstream max retries must not be negative, got %d", c.UpstreamMaxRetries)
	}
	if c.UpstreamSessionHeader == "" {
		return fmt.Errorf("upstream session header must not be empty")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1, got %d", c.RateLimitBurst)
	}
	switch c.StorageDriver {
	case StorageRedis, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q (want redis, postgres or memory)", c.StorageDriver)
	}
	if c.SlotTTLHours < 0 {
		return fmt.Errorf("slot TTL must not be negative, got %d", c.SlotTTLHours)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTel sample rate must be within [0,1], got %v", c.OTelSampleRate)
	}
	return nil
}
