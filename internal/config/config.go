// Package config loads application configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds all runtime configuration.
type Config struct {
	Addr        string `env:"ADDR" envDefault:"127.0.0.1:3001"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	SpotifyClientID     string `env:"SPOTIFY_ID" validate:"required"`
	SpotifyClientSecret string `env:"SPOTIFY_SECRET" validate:"required"`
	SpotifyRedirectURI  string `env:"SPOTIFY_REDIRECT_URI" envDefault:"http://127.0.0.1:3001/api/spotify/callback"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID" validate:"required"`
	JWTSecret      string `env:"JWT_SECRET" validate:"required"`

	// SyncPageSize is capped at 50, the provider maximum for the
	// recently-played endpoint.
	SyncPageSize int `env:"SYNC_PAGE_SIZE" envDefault:"50" validate:"min=1,max=50"`
}

// Load parses and validates configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
