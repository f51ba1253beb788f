package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, populated from the environment.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// StorageDriver selects the persistence backend: "postgres" or "memory".
	// The memory driver exists for local development and tests.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	QueryTimeout  time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`

	// UniquenessScope is "guild" (default) or "guild-dimension"; it controls
	// whether a coordinate name must be unique per guild or per
	// guild-and-dimension.
	UniquenessScope string `env:"UNIQUENESS_SCOPE" envDefault:"guild"`

	// SessionTimeout bounds how long a disambiguation session may stay
	// unanswered before it is discarded.
	SessionTimeout       time.Duration `env:"SESSION_TIMEOUT" envDefault:"45s"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5s"`

	BreakerMaxFailures  int           `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerResetTimeout time.Duration `env:"BREAKER_RESET_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment and validates cross-field requirements.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks constraints that struct tags cannot express.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with the postgres storage driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	switch c.UniquenessScope {
	case "guild", "guild-dimension":
	default:
		return fmt.Errorf("unknown uniqueness scope %q", c.UniquenessScope)
	}

	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}
