package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository handles listening history database operations.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// Record inserts a listening event. A row with the same
// (user_id, song_id, played_at) already present is a silent no-op,
// which makes replayed sync windows safe.
func (r *HistoryRepository) Record(ctx context.Context, event *ListeningEvent) error {
	query := `
		INSERT INTO listening_history (id, user_id, song_id, played_at, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, song_id, played_at) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.SongID,
		event.PlayedAt,
		event.Duration,
	)
	if err != nil {
		return fmt.Errorf("inserting listening event: %w", err)
	}
	return nil
}

// RecentForUser returns the user's most recent listening events with
// song and artist metadata, newest first.
func (r *HistoryRepository) RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT h.played_at, s.name, a.name, s.album_name, s.album_image_url, s.duration_ms
		FROM listening_history h
		JOIN songs s ON s.id = h.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE h.user_id = $1
		ORDER BY h.played_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying listening history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.PlayedAt,
			&e.SongName,
			&e.ArtistName,
			&e.AlbumName,
			&e.AlbumImageURL,
			&e.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountForUser returns the number of stored listening events for a user.
func (r *HistoryRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listening_history WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting listening events: %w", err)
	}
	return count, nil
}
