package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env         string `env:"ENV"          envDefault:"local" validate:"required,oneof=local staging production"`
	Port        string `env:"PORT"         envDefault:"8787"  validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"  validate:"oneof=debug info warn error"`

	AppOrigin          string   `env:"APP_ORIGIN"           envDefault:"http://localhost:8787" validate:"required,url"`
	AllowedEmails      []string `env:"ALLOWED_EMAILS"       envSeparator:","`
	ShowAllowlistError bool     `env:"SHOW_ALLOWLIST_ERROR" envDefault:"false"`
	TokenTTLMs         int64    `env:"TOKEN_TTL_MS"         envDefault:"900000"    validate:"min=1000"`
	SessionTTLMs       int64    `env:"SESSION_TTL_MS"       envDefault:"604800000" validate:"min=1000"`
	TokenHashKey       string   `env:"TOKEN_HASH_KEY"`

	EventBufferSize     int    `env:"EVENT_BUFFER_SIZE"     envDefault:"500"        validate:"min=1,max=100000"`
	SubscriberQueueSize int    `env:"SUBSCRIBER_QUEUE_SIZE" envDefault:"64"         validate:"min=1,max=10000"`
	KeepaliveSec        int    `env:"KEEPALIVE_SEC"         envDefault:"15"         validate:"min=1,max=300"`
	ReaperSchedule      string `env:"REAPER_SCHEDULE"       envDefault:"@every 1m"  validate:"required"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AllowedEmails = normalizeEmails(cfg.AllowedEmails)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
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

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMs) * time.Millisecond
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMs) * time.Millisecond
}

func (c *Config) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveSec) * time.Second
}
