// Package config loads process configuration from the environment.
// An optional .env file is honored for local development.
package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Deck is the comma-separated card set; empty means the default deck.
	Deck string `env:"DECK"`

	SubscriberBuffer     int `env:"SUBSCRIBER_BUFFER" default:"16"`
	MaxClientsPerSession int `env:"MAX_CLIENTS_PER_SESSION" default:"50"`

	MaxConnections  int64   `env:"MAX_CONNECTIONS" default:"10000"`
	ConnectionRate  float64 `env:"CONNECTION_RATE" default:"10"`
	ConnectionBurst int     `env:"CONNECTION_BURST" default:"20"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SubscriberBuffer < 1 {
		return fmt.Errorf("SUBSCRIBER_BUFFER must be at least 1, got %d", cfg.SubscriberBuffer)
	}
	if cfg.MaxClientsPerSession < 1 {
		return fmt.Errorf("MAX_CLIENTS_PER_SESSION must be at least 1, got %d", cfg.MaxClientsPerSession)
	}
	if cfg.MaxConnections < 1 {
		return fmt.Errorf("MAX_CONNECTIONS must be at least 1, got %d", cfg.MaxConnections)
	}
	if cfg.ConnectionRate <= 0 {
		return fmt.Errorf("CONNECTION_RATE must be positive, got %g", cfg.ConnectionRate)
	}
	if cfg.ConnectionBurst < 1 {
		return fmt.Errorf("CONNECTION_BURST must be at least 1, got %d", cfg.ConnectionBurst)
	}
	return nil
}
