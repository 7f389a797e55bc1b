package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"slidequiz-engine"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Deck   Deck
	Redis  Redis
	Engine Engine
}

// Deck points at the quiz deck the engine serves.
type Deck struct {
	Path string `env:"DECK_PATH" envDefault:"deck.json"`
}

// Redis holds durable-store configuration. An empty Addr selects the
// in-memory store, losing persistence across process restarts.
type Redis struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	TTL      time.Duration `env:"REDIS_SESSION_TTL" envDefault:"0"` // 0 keeps sessions forever
}

// Engine groups scoring and timing defaults.
type Engine struct {
	DefaultTimeLimitSeconds int `env:"DEFAULT_TIME_LIMIT_SECONDS" envDefault:"20"`
	MinAwardPoints          int `env:"MIN_AWARD_POINTS" envDefault:"10"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
