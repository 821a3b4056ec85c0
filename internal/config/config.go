// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	StorageMemory = ""
	StorageS3     = "s3"
	StorageMinIO  = "minio"
)

const defaultDBPassword = "changeme"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port     string `env:"APP_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"` // "development", "production", "testing"
	BaseURL  string `env:"APP_BASE_URL"`                      // public origin; derived from Port when empty
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgreSQL connection
	DBHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort       string        `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser       string        `env:"POSTGRES_USER" envDefault:"estrategas"`
	DBPassword   string        `env:"POSTGRES_PASSWORD" envDefault:"changeme"`
	DBName       string        `env:"POSTGRES_DB" envDefault:"estrategas"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`

	// Valkey (Redis-compatible cache). Empty host keeps sessions and the
	// page cache in process memory.
	ValkeyHost     string `env:"VALKEY_HOST"`
	ValkeyPort     string `env:"VALKEY_PORT" envDefault:"6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`

	PageCacheTTL time.Duration `env:"PAGE_CACHE_TTL" envDefault:"5m"`

	// Object storage for uploaded images.
	StorageDriver string `env:"STORAGE_DRIVER"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION" envDefault:"eu-central"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"true"`
	MinIOPublicURL string `env:"MINIO_PUBLIC_URL"`

	UploadMaxBytes    int64 `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	UploadConcurrency int   `env:"UPLOAD_CONCURRENCY" envDefault:"4"`

	// Abuse controls and access gate housekeeping.
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
	// Reverse proxies allowed to name the client in X-Forwarded-For, as
	// addresses or CIDR ranges. Empty means the direct peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	GateMaxIdle    time.Duration `env:"GATE_MAX_IDLE" envDefault:"24h"`
	GateSweep      string        `env:"GATE_SWEEP_SCHEDULE" envDefault:"@every 10m"`
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Env == "production" && c.DBPassword == defaultDBPassword {
		errs = append(errs, errors.New("POSTGRES_PASSWORD must be set in production"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.StorageDriver {
	case StorageMemory:
		if c.Env == "production" {
			errs = append(errs, errors.New("STORAGE_DRIVER must be set in production"))
		}
	case StorageS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			errs = append(errs, errors.New("S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 driver"))
		}
	case StorageMinIO:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_BUCKET, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q (want s3, minio or empty)", c.StorageDriver))
	}

	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UseValkey reports whether sessions and the page cache live in Valkey.
func (c *Config) UseValkey() bool {
	return c.ValkeyHost != ""
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address becomes a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", raw)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return lvl, nil
}
