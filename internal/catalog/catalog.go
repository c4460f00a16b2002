// Package catalog materializes Spotify entities into local rows with
// idempotent, natural-key upserts.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tunestat/tunestat/internal/db"
	"github.com/tunestat/tunestat/internal/spotify"
)

// ArtistStore persists artist rows keyed on Spotify ID.
type ArtistStore interface {
	Upsert(ctx context.Context, artist *db.Artist) error
}

// SongStore persists song rows keyed on Spotify ID.
type SongStore interface {
	Upsert(ctx context.Context, song *db.Song) error
}

// HistoryStore persists listening events deduplicated on
// (user, song, played-at).
type HistoryStore interface {
	Record(ctx context.Context, event *db.ListeningEvent) error
}

// Service converts provider-shaped entities into stored rows. Payloads
// are validated here, at the boundary, so repositories never see
// partial entities.
type Service struct {
	artists ArtistStore
	songs   SongStore
	history HistoryStore
}

// NewService creates a catalog service.
func NewService(artists ArtistStore, songs SongStore, history HistoryStore) *Service {
	return &Service{
		artists: artists,
		songs:   songs,
		history: history,
	}
}

// UpsertArtist stores a provider artist and returns the resulting row.
// On repeat sightings the latest provider data wins and the existing
// local ID is returned, so callers can link dependent entities.
func (s *Service) UpsertArtist(ctx context.Context, in spotify.Artist) (*db.Artist, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	genres := in.Genres
	if genres == nil {
		genres = []string{}
	}

	artist := &db.Artist{
		ID:         uuid.New(),
		SpotifyID:  in.ID,
		Name:       in.Name,
		ImageURL:   in.ImageURL(),
		Popularity: in.Popularity,
		Genres:     genres,
	}
	if err := s.artists.Upsert(ctx, artist); err != nil {
		return nil, fmt.Errorf("storing artist: %w", err)
	}
	return artist, nil
}

// UpsertSong stores a provider track linked to a local artist and
// returns the resulting row. The artist reference is always restamped.
func (s *Service) UpsertSong(ctx context.Context, in spotify.Track, artistID uuid.UUID) (*db.Song, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var albumName *string
	if in.Album.Name != "" {
		name := in.Album.Name
		albumName = &name
	}

	durationMs := in.DurationMs

	song := &db.Song{
		ID:            uuid.New(),
		SpotifyID:     in.ID,
		Name:          in.Name,
		ArtistID:      artistID,
		AlbumName:     albumName,
		AlbumImageURL: in.AlbumImageURL(),
		DurationMs:    &durationMs,
		Popularity:    in.Popularity,
	}
	if err := s.songs.Upsert(ctx, song); err != nil {
		return nil, fmt.Errorf("storing song: %w", err)
	}
	return song, nil
}

// RecordListen stores one observed play. durationSeconds is how long
// the user actually listened, when known, not the track length.
// Recording the same (user, song, playedAt) twice is a no-op.
func (s *Service) RecordListen(ctx context.Context, userID, songID uuid.UUID, playedAt time.Time, durationSeconds *int) error {
	if playedAt.IsZero() {
		return spotify.ErrMalformedPlay
	}

	event := &db.ListeningEvent{
		ID:       uuid.New(),
		UserID:   userID,
		SongID:   songID,
		PlayedAt: playedAt,
		Duration: durationSeconds,
	}
	if err := s.history.Record(ctx, event); err != nil {
		return fmt.Errorf("storing listening event: %w", err)
	}
	return nil
}
