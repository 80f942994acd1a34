package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds all runtime configuration, parsed from the
// environment. Nothing in the application reads the environment
// directly; the loaded struct is passed to whichever component needs
// it.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://elections.db"`

	// AdminToken gates the admin endpoints (CSV export, ending an
	// election). The server refuses to start without one.
	AdminToken string `env:"ADMIN_TOKEN,notEmpty"`

	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	// RootURL is prepended to the verification links sent by email.
	RootURL string `env:"ROOT_URL" envDefault:"http://localhost:8080"`

	SMTP SMTP
}

// SMTP configures outgoing mail. An empty Host disables sending; mail
// is then logged instead.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

func Load() (Config, error) {
	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}
