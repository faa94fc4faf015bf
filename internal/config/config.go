// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/tickr/internal/logging"
)

// Config holds the environment defaults for the CLI. Flags override them.
type Config struct {
	LogLevel  string        `env:"TICKR_LOG_LEVEL"  envDefault:"info"`
	LogFormat string        `env:"TICKR_LOG_FORMAT" envDefault:"text"`
	Period    time.Duration `env:"TICKR_PERIOD"     envDefault:"20ms"`
	DB        string        `env:"TICKR_DB"`
	Listen    string        `env:"TICKR_LISTEN"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the env tags cannot express.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("TICKR_LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("TICKR_LOG_FORMAT: want text or json, got %q", c.LogFormat)
	}
	if c.Period <= 0 {
		return fmt.Errorf("TICKR_PERIOD must be positive, got %s", c.Period)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
