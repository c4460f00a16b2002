package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SongRepository handles song database operations.
type SongRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates a song keyed on its Spotify ID. The song
// struct is updated with the stored row. The artist reference is always
// restamped, re-pointing the song if the provider changed its primary
// artist.
func (r *SongRepository) Upsert(ctx context.Context, song *Song) error {
	query := `
		INSERT INTO songs (id, spotify_id, name, artist_id, album_name, album_image_url, duration_ms, popularity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			name = EXCLUDED.name,
			artist_id = EXCLUDED.artist_id,
			album_name = EXCLUDED.album_name,
			album_image_url = EXCLUDED.album_image_url,
			duration_ms = EXCLUDED.duration_ms,
			popularity = EXCLUDED.popularity,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		song.ID,
		song.SpotifyID,
		song.Name,
		song.ArtistID,
		song.AlbumName,
		song.AlbumImageURL,
		song.DurationMs,
		song.Popularity,
	).Scan(&song.ID, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting song: %w", err)
	}
	return nil
}

// Get retrieves a song by local ID.
func (r *SongRepository) Get(ctx context.Context, id uuid.UUID) (*Song, error) {
	query := `
		SELECT id, spotify_id, name, artist_id, album_name, album_image_url, duration_ms, popularity, created_at, updated_at
		FROM songs
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetBySpotifyID retrieves a song by its Spotify ID.
func (r *SongRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*Song, error) {
	query := `
		SELECT id, spotify_id, name, artist_id, album_name, album_image_url, duration_ms, popularity, created_at, updated_at
		FROM songs
		WHERE spotify_id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, spotifyID))
}

func (r *SongRepository) scanOne(row pgx.Row) (*Song, error) {
	var song Song
	err := row.Scan(
		&song.ID,
		&song.SpotifyID,
		&song.Name,
		&song.ArtistID,
		&song.AlbumName,
		&song.AlbumImageURL,
		&song.DurationMs,
		&song.Popularity,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &song, nil
}
