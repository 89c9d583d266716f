package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	URL            string `env:"GOTRUE_URL" validate:"required,url"`
	APIKey         string `env:"GOTRUE_API_KEY"`
	HTTPTimeoutSec int    `env:"GOTRUE_HTTP_TIMEOUT_SEC" envDefault:"10" validate:"min=1,max=300"`

	// When set, client metrics are written here in the Prometheus text format
	// after each command, for node_exporter's textfile collector.
	MetricsTextfile string `env:"METRICS_TEXTFILE"`
}

// Load parses the environment. urlOverride, if set, replaces GOTRUE_URL
// before validation.
func Load(urlOverride string) (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if urlOverride != "" {
		cfg.URL = urlOverride
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
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

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// DefaultHeaders are sent with every request to the auth API.
func (c *Config) DefaultHeaders() map[string]string {
	headers := map[string]string{}
	if c.APIKey != "" {
		headers["apikey"] = c.APIKey
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	return headers
}
