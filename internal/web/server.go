// Package web provides the HTTP API server for tunestat.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	FrontendURL string
	Handlers    *Handlers
	Logger      zerolog.Logger
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: cfg.Handlers,
		logger:   cfg.Logger,
	}

	s.setupMiddleware(cfg.FrontendURL)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(frontendURL string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
}

// setupRoutes configures routes for the API.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/health", h.Health)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/google", h.GoogleSignIn)
		r.Post("/auth/logout", h.Logout)
		r.Get("/users/{userId}", h.PublicProfile)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/auth/me", h.Me)
			r.Post("/auth/verify", h.Verify)

			r.Get("/users/profile", h.Me)
			r.Put("/users/profile", h.UpdateProfile)

			r.Route("/spotify", func(r chi.Router) {
				r.Get("/connect", h.SpotifyConnect)
				r.Get("/callback", h.SpotifyCallback)
				r.Get("/status", h.SpotifyStatus)
				r.Post("/disconnect", h.SpotifyDisconnect)
				r.Get("/recently-played", h.RecentlyPlayed)
				r.Get("/top-artists", h.TopArtists)
				r.Get("/top-tracks", h.TopTracks)
				r.Get("/history", h.History)
				r.Post("/sync", h.Sync)
			})
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt
// signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info().Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
