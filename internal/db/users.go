package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a user by local ID.
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, google_id, email, name, picture, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.Picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// GetByGoogleID retrieves a user by Google subject ID.
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*User, error) {
	query := `
		SELECT id, google_id, email, name, picture, created_at, updated_at
		FROM users
		WHERE google_id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, googleID).Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.Picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by google id: %w", err)
	}
	return &user, nil
}

// UpdateProfile updates the user's editable profile fields. Nil fields
// are left as stored. Returns ErrNotFound when the user does not exist.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, picture *string) (*User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
			picture = COALESCE($3, picture),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, google_id, email, name, picture, created_at, updated_at
	`
	var user User
	err := r.pool.QueryRow(ctx, query, id, name, picture).Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.Picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating user profile: %w", err)
	}
	return &user, nil
}

// UpsertByGoogleID creates a user on first sign-in or refreshes the
// profile fields on later sign-ins. The user struct is updated with
// the stored row, including the local ID of a pre-existing user.
// A missing picture never clears a previously stored one.
func (r *UserRepository) UpsertByGoogleID(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, google_id, email, name, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = COALESCE(EXCLUDED.picture, users.picture),
			updated_at = NOW()
		RETURNING id, picture, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.GoogleID,
		user.Email,
		user.Name,
		user.Picture,
	).Scan(&user.ID, &user.Picture, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}
