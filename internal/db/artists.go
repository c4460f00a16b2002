package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtistRepository handles artist database operations.
type ArtistRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates an artist keyed on its Spotify ID. The
// artist struct is updated with the stored row, so on conflict the
// caller receives the pre-existing local ID.
func (r *ArtistRepository) Upsert(ctx context.Context, artist *Artist) error {
	query := `
		INSERT INTO artists (id, spotify_id, name, image_url, popularity, genres, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			popularity = EXCLUDED.popularity,
			genres = EXCLUDED.genres,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		artist.ID,
		artist.SpotifyID,
		artist.Name,
		artist.ImageURL,
		artist.Popularity,
		artist.Genres,
	).Scan(&artist.ID, &artist.CreatedAt, &artist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting artist: %w", err)
	}
	return nil
}

// Get retrieves an artist by local ID.
func (r *ArtistRepository) Get(ctx context.Context, id uuid.UUID) (*Artist, error) {
	query := `
		SELECT id, spotify_id, name, image_url, popularity, genres, created_at, updated_at
		FROM artists
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetBySpotifyID retrieves an artist by its Spotify ID.
func (r *ArtistRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*Artist, error) {
	query := `
		SELECT id, spotify_id, name, image_url, popularity, genres, created_at, updated_at
		FROM artists
		WHERE spotify_id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, spotifyID))
}

func (r *ArtistRepository) scanOne(row pgx.Row) (*Artist, error) {
	var artist Artist
	err := row.Scan(
		&artist.ID,
		&artist.SpotifyID,
		&artist.Name,
		&artist.ImageURL,
		&artist.Popularity,
		&artist.Genres,
		&artist.CreatedAt,
		&artist.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist: %w", err)
	}
	return &artist, nil
}
