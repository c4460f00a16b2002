// Package tokens produces currently valid Spotify access tokens for
// users, refreshing transparently when the stored token has expired.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/tunestat/tunestat/internal/db"
)

// ErrNotConnected means the user has no usable Spotify connection:
// never connected, disconnected, or the refresh token was rejected.
// It is a normal state, not a failure; callers surface it as
// "reconnect required".
var ErrNotConnected = errors.New("spotify not connected")

// ConnectionStore is the subset of the connection repository the
// service needs.
type ConnectionStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*db.Connection, error)
	UpdateTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

// Refresher exchanges a refresh token for a new token set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Service resolves valid access tokens against the connection store.
type Service struct {
	store  ConnectionStore
	oauth  Refresher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a token service.
func NewService(store ConnectionStore, oauth Refresher, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		oauth:  oauth,
		logger: logger,
		now:    time.Now,
	}
}

// ValidAccessToken returns an access token that is valid right now.
//
// An unexpired stored token is returned as-is without touching the
// provider. An expired one triggers a single refresh attempt: on
// success the new token set is persisted (keeping the old refresh
// token when the provider omits one) and the new access token
// returned; on any refresh failure the connection is deactivated and
// ErrNotConnected returned. A broken refresh token cannot self-heal,
// so every later call is a cheap local check until the user
// re-authenticates.
func (s *Service) ValidAccessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	conn, err := s.store.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrNotConnected
	}
	if err != nil {
		return "", fmt.Errorf("loading connection: %w", err)
	}
	if !conn.IsActive {
		return "", ErrNotConnected
	}

	if s.now().Before(conn.ExpiresAt) {
		return conn.AccessToken, nil
	}

	token, err := s.oauth.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Stringer("user_id", userID).
			Msg("token refresh failed, deactivating connection")
		if derr := s.store.Deactivate(ctx, userID); derr != nil {
			return "", fmt.Errorf("deactivating connection: %w", derr)
		}
		return "", ErrNotConnected
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}

	// A response without expires_in leaves a zero Expiry; persisting
	// that would force a refresh on every call. Spotify tokens live an
	// hour, so assume that.
	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(time.Hour)
	}

	if err := s.store.UpdateTokens(ctx, userID, token.AccessToken, refreshToken, expiry); err != nil {
		return "", fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	return token.AccessToken, nil
}
