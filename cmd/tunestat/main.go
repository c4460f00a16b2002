// Command tunestat runs the tunestat API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tunestat/tunestat/internal/auth"
	"github.com/tunestat/tunestat/internal/catalog"
	"github.com/tunestat/tunestat/internal/config"
	"github.com/tunestat/tunestat/internal/db"
	"github.com/tunestat/tunestat/internal/spotify"
	syncsvc "github.com/tunestat/tunestat/internal/sync"
	"github.com/tunestat/tunestat/internal/tokens"
	"github.com/tunestat/tunestat/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	oauth := spotify.NewOAuth(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
	client := spotify.NewClient()

	tokenService := tokens.NewService(database.Connections(), oauth, logger)
	catalogService := catalog.NewService(database.Artists(), database.Songs(), database.History())
	syncService := syncsvc.NewService(
		tokenService,
		client,
		catalogService,
		logger,
		syncsvc.WithPageSize(cfg.SyncPageSize),
	)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret)
	authService := auth.NewService(database.Users(), auth.NewGoogleVerifier(cfg.GoogleClientID), issuer)

	handlers := web.NewHandlers(web.HandlersConfig{
		Auth:        authService,
		Sessions:    issuer,
		Tokens:      tokenService,
		Syncer:      syncService,
		Spotify:     client,
		OAuth:       oauth,
		Connections: database.Connections(),
		History:     database.History(),
		FrontendURL: cfg.FrontendURL,
		Logger:      logger,
	})

	server := web.NewServer(web.ServerConfig{
		Addr:        cfg.Addr,
		FrontendURL: cfg.FrontendURL,
		Handlers:    handlers,
		Logger:      logger,
	})

	return server.Run()
}
