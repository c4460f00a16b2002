// Package sync pulls recent Spotify listening activity into the local
// catalog.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunestat/tunestat/internal/db"
	"github.com/tunestat/tunestat/internal/spotify"
)

// DefaultPageSize is the provider maximum for recently-played items.
const DefaultPageSize = 50

// TokenSource yields a valid access token for a user.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// Provider fetches recent play events from Spotify.
type Provider interface {
	RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]spotify.PlayEvent, error)
}

// Catalog materializes provider entities into stored rows.
type Catalog interface {
	UpsertArtist(ctx context.Context, in spotify.Artist) (*db.Artist, error)
	UpsertSong(ctx context.Context, in spotify.Track, artistID uuid.UUID) (*db.Song, error)
	RecordListen(ctx context.Context, userID, songID uuid.UUID, playedAt time.Time, durationSeconds *int) error
}

// Service orchestrates one sync pass over the user's recent plays.
type Service struct {
	tokens   TokenSource
	provider Provider
	catalog  Catalog
	pageSize int
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize overrides the number of play events fetched per sync.
func WithPageSize(n int) Option {
	return func(s *Service) {
		s.pageSize = n
	}
}

// NewService creates a sync service.
func NewService(tokens TokenSource, provider Provider, catalog Catalog, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		tokens:   tokens,
		provider: provider,
		catalog:  catalog,
		pageSize: DefaultPageSize,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SkippedEvent records why one fetched play event was not synced.
type SkippedEvent struct {
	Index     int
	TrackName string
	Reason    string
}

// Result summarizes a sync pass. SyncedCount below TotalFetched is a
// normal outcome, not an error.
type Result struct {
	SyncedCount  int
	TotalFetched int
	Skipped      []SkippedEvent
}

// SyncRecentActivity fetches one page of the user's recent plays and
// materializes each into the catalog.
//
// Events are processed independently: a malformed or failing event is
// counted and skipped, never aborting the batch, and rows already
// committed for earlier events stand. The initial token resolution and
// page fetch are the only whole-sync failures; tokens.ErrNotConnected
// passes through untouched so callers can map it to "reconnect
// required".
func (s *Service) SyncRecentActivity(ctx context.Context, userID uuid.UUID) (*Result, error) {
	token, err := s.tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	events, err := s.provider.RecentlyPlayed(ctx, token, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching recent plays: %w", err)
	}

	result := &Result{TotalFetched: len(events)}
	for i, event := range events {
		if err := s.syncEvent(ctx, userID, event); err != nil {
			s.logger.Warn().
				Err(err).
				Int("index", i).
				Str("track", event.Track.Name).
				Stringer("user_id", userID).
				Msg("skipping play event")
			result.Skipped = append(result.Skipped, SkippedEvent{
				Index:     i,
				TrackName: event.Track.Name,
				Reason:    err.Error(),
			})
			continue
		}
		result.SyncedCount++
	}

	s.logger.Info().
		Int("synced", result.SyncedCount).
		Int("fetched", result.TotalFetched).
		Stringer("user_id", userID).
		Msg("sync completed")
	return result, nil
}

// syncEvent materializes a single play event: artist, then song, then
// the listening event itself.
func (s *Service) syncEvent(ctx context.Context, userID uuid.UUID, event spotify.PlayEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	// Recently-played items carry no artist detail; the track's
	// popularity stands in until a top-artists fetch fills it.
	primary := event.Track.PrimaryArtist()
	primary.Popularity = event.Track.Popularity

	artist, err := s.catalog.UpsertArtist(ctx, primary)
	if err != nil {
		return err
	}

	song, err := s.catalog.UpsertSong(ctx, event.Track, artist.ID)
	if err != nil {
		return err
	}

	return s.catalog.RecordListen(ctx, userID, song.ID, event.PlayedAt, nil)
}
