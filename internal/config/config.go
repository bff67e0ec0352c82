// Package config holds the typed runtime configuration for the evaluation
// subsystem and its YAML loader. Every section maps onto one component's
// own config type; Load applies defaults, then the file, then environment
// overrides, and validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root configuration.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers" validate:"dive"`
	Retry     RetryConfig               `yaml:"retry"`
	RateLimit RateLimitConfig           `yaml:"rate_limit"`
	Breaker   BreakerConfig             `yaml:"breaker"`
	Cache     CacheConfig               `yaml:"cache"`
	Session   SessionConfig             `yaml:"session"`
	Pricing   PricingConfig             `yaml:"pricing"`
	Temporal  TemporalConfig            `yaml:"temporal"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// ProviderConfig registers one OpenAI-compatible inference endpoint. The
// API key is never read from the file; it arrives per request from the
// credential vault.
type ProviderConfig struct {
	Endpoint string `yaml:"endpoint" validate:"required,url"`
}

// RetryConfig mirrors the retry policy settings.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `yaml:"base_delay" validate:"gt=0"`
	MaxDelay   time.Duration `yaml:"max_delay" validate:"gt=0"`
	Multiplier float64       `yaml:"multiplier" validate:"gte=1"`
}

// RateLimitConfig mirrors the local limiter settings.
type RateLimitConfig struct {
	RPS     float64       `yaml:"rps" validate:"gt=0"`
	Burst   int           `yaml:"burst" validate:"gte=1"`
	MaxWait time.Duration `yaml:"max_wait" validate:"gt=0"`
}

// BreakerConfig mirrors the per-provider circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout" validate:"gt=0"`
}

// CacheConfig mirrors the response/search cache settings.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
	MaxEntries    int           `yaml:"max_entries" validate:"gte=1"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
}

// SessionConfig controls session persistence and expiry.
type SessionConfig struct {
	// Path is the storage file; empty selects in-memory storage.
	Path          string        `yaml:"path"`
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
	CheckInterval time.Duration `yaml:"check_interval" validate:"gte=0"`
}

// PricingConfig controls cost computation.
type PricingConfig struct {
	// FailClosed makes an unknown model an error instead of using the
	// conservative fallback rate.
	FailClosed bool `yaml:"fail_closed"`
}

// TemporalConfig connects the worker to a Temporal server.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" validate:"required,hostname_port"`
	Namespace string `yaml:"namespace" validate:"required"`
	TaskQueue string `yaml:"task_queue" validate:"required"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns production defaults. Mutate the result before use rather
// than constructing a Config from scratch.
func Default() Config {
	return Config{
		Providers: map[string]ProviderConfig{
			"openai": {Endpoint: "https://api.openai.com/v1"},
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
			Multiplier: 2.0,
		},
		RateLimit: RateLimitConfig{
			RPS:     5,
			Burst:   2,
			MaxWait: 10 * time.Second,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			MaxEntries:    100,
			SweepInterval: time.Minute,
		},
		Session: SessionConfig{
			TTL:           time.Hour,
			CheckInterval: time.Minute,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "evalforge-evaluations",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the effective configuration: defaults, overlaid with the YAML
// file at path when non-empty, overlaid with EVALFORGE_* environment
// variables, then validated. A missing file at an explicitly given path is
// an error; an empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("invalid configuration: retry max_delay %v below base_delay %v",
			c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg. Only operational knobs
// are exposed this way; structural settings stay in the file.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("EVALFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EVALFORGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("EVALFORGE_TEMPORAL_HOST_PORT"); v != "" {
		cfg.Temporal.HostPort = v
	}
	if v := os.Getenv("EVALFORGE_TEMPORAL_NAMESPACE"); v != "" {
		cfg.Temporal.Namespace = v
	}
	if v := os.Getenv("EVALFORGE_TEMPORAL_TASK_QUEUE"); v != "" {
		cfg.Temporal.TaskQueue = v
	}
	if v := os.Getenv("EVALFORGE_SESSION_PATH"); v != "" {
		cfg.Session.Path = v
	}
	if v := os.Getenv("EVALFORGE_RETRY_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EVALFORGE_RETRY_MAX_RETRIES %q: %w", v, err)
		}
		cfg.Retry.MaxRetries = n
	}
	if v := os.Getenv("EVALFORGE_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid EVALFORGE_RATE_LIMIT_RPS %q: %w", v, err)
		}
		cfg.RateLimit.RPS = f
	}
	return nil
}
