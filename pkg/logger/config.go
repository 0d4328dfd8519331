package logger

import (
	"log/slog"

	"github.com/dmitrymomot/authpress/pkg/config"
)

// Config is the environment-driven logger configuration.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_NAME" envDefault:"authpress"`
	Level   string `env:"LOG_LEVEL"` // overrides the environment default when set
}

// FromEnv builds a logger from APP_ENV, APP_NAME and LOG_LEVEL.
func FromEnv(opts ...Option) (*slog.Logger, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	all := []Option{WithEnvironment(cfg.Env, cfg.Service)}
	if cfg.Level != "" {
		all = append(all, WithLevel(ParseLevel(cfg.Level)))
	}
	return New(append(all, opts...)...), nil
}
