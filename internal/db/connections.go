package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectionRepository handles Spotify connection database operations.
// The user_id unique constraint keeps this at one row per user.
type ConnectionRepository struct {
	pool *pgxpool.Pool
}

// Upsert writes or replaces the user's connection row. Every completed
// OAuth callback lands here, so the row is always reactivated: a fresh
// grant is the signal that the tokens are healthy again.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *Connection) error {
	query := `
		INSERT INTO spotify_connections
			(id, user_id, spotify_id, access_token, refresh_token, expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			spotify_id = EXCLUDED.spotify_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id, is_active, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		conn.ID,
		conn.UserID,
		conn.SpotifyID,
		conn.AccessToken,
		conn.RefreshToken,
		conn.ExpiresAt,
	).Scan(&conn.ID, &conn.IsActive, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting connection: %w", err)
	}
	return nil
}

// Get retrieves the connection for a user. Returns ErrNotFound when the
// user has never connected Spotify.
func (r *ConnectionRepository) Get(ctx context.Context, userID uuid.UUID) (*Connection, error) {
	query := `
		SELECT id, user_id, spotify_id, access_token, refresh_token, expires_at, is_active, created_at, updated_at
		FROM spotify_connections
		WHERE user_id = $1
	`
	var conn Connection
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&conn.ID,
		&conn.UserID,
		&conn.SpotifyID,
		&conn.AccessToken,
		&conn.RefreshToken,
		&conn.ExpiresAt,
		&conn.IsActive,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying connection: %w", err)
	}
	return &conn, nil
}

// UpdateTokens replaces the stored tokens and expiry after a successful
// refresh. The active flag is left untouched.
func (r *ConnectionRepository) UpdateTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE spotify_connections
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.pool.Exec(ctx, query, userID, accessToken, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("updating connection tokens: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate marks the user's connection inactive, signaling that a
// reconnect is required. A user with no connection is a no-op.
func (r *ConnectionRepository) Deactivate(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE spotify_connections
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("deactivating connection: %w", err)
	}
	return nil
}
