package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a local account created from a Google sign-in.
type User struct {
	ID        uuid.UUID
	GoogleID  string
	Email     string
	Name      string
	Picture   *string // nullable
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Connection links a user to their Spotify account. At most one row
// exists per user; re-connecting replaces the row in place.
type Connection struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	SpotifyID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Artist represents a Spotify artist, keyed by its Spotify ID.
type Artist struct {
	ID         uuid.UUID
	SpotifyID  string
	Name       string
	ImageURL   *string // nullable
	Popularity int
	Genres     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Song represents a Spotify track, keyed by its Spotify ID.
type Song struct {
	ID            uuid.UUID
	SpotifyID     string
	Name          string
	ArtistID      uuid.UUID
	AlbumName     *string // nullable
	AlbumImageURL *string // nullable
	DurationMs    *int    // track length in milliseconds, nullable
	Popularity    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListeningEvent is one observed play of a song by a user. Rows are
// deduplicated on (user_id, song_id, played_at) and never updated.
type ListeningEvent struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	SongID    uuid.UUID
	PlayedAt  time.Time
	Duration  *int // seconds actually listened, nullable; not the track length
	CreatedAt time.Time
}

// HistoryEntry is a listening event joined with its song and artist,
// as served to the dashboard.
type HistoryEntry struct {
	PlayedAt      time.Time
	SongName      string
	ArtistName    string
	AlbumName     *string
	AlbumImageURL *string
	DurationMs    *int
}
