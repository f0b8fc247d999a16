package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration for the exam engine.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"exam-engine"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Bank     Bank
	Progress Progress
	Session  Session
}

// Bank locates the static question bank files.
type Bank struct {
	Dir string `env:"QUESTION_BANK_DIR" envDefault:"data"`
}

// Progress configures the local session checkpoint store.
type Progress struct {
	Path string `env:"PROGRESS_DB_PATH" envDefault:"exam-progress.db"`
}

// Session tunes live session behavior.
type Session struct {
	AutosaveSeconds int `env:"AUTOSAVE_SECONDS" envDefault:"30"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
