package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/tunestat/tunestat/internal/db"
)

// fakeStore implements ConnectionStore for testing.
type fakeStore struct {
	conn   *db.Connection
	getErr error

	updated      bool
	deactivated  bool
	savedAccess  string
	savedRefresh string
	savedExpiry  time.Time
}

func (f *fakeStore) Get(_ context.Context, _ uuid.UUID) (*db.Connection, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.conn == nil {
		return nil, db.ErrNotFound
	}
	return f.conn, nil
}

func (f *fakeStore) UpdateTokens(_ context.Context, _ uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	f.updated = true
	f.savedAccess = accessToken
	f.savedRefresh = refreshToken
	f.savedExpiry = expiresAt
	f.conn.AccessToken = accessToken
	f.conn.RefreshToken = refreshToken
	f.conn.ExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) Deactivate(_ context.Context, _ uuid.UUID) error {
	f.deactivated = true
	if f.conn != nil {
		f.conn.IsActive = false
	}
	return nil
}

// fakeRefresher implements Refresher for testing.
type fakeRefresher struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func activeConnection(expiresAt time.Time) *db.Connection {
	return &db.Connection{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		SpotifyID:    "spotify-user",
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    expiresAt,
		IsActive:     true,
	}
}

func TestValidAccessToken_NeverConnected(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeRefresher{}, zerolog.Nop())

	_, err := svc.ValidAccessToken(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestValidAccessToken_Inactive(t *testing.T) {
	conn := activeConnection(time.Now().Add(time.Hour))
	conn.IsActive = false
	store := &fakeStore{conn: conn}
	refresher := &fakeRefresher{}
	svc := NewService(store, refresher, zerolog.Nop())

	_, err := svc.ValidAccessToken(context.Background(), conn.UserID)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if refresher.calls != 0 {
		t.Errorf("expected no refresh attempt, got %d", refresher.calls)
	}
}

func TestValidAccessToken_Unexpired(t *testing.T) {
	conn := activeConnection(time.Now().Add(time.Hour))
	store := &fakeStore{conn: conn}
	refresher := &fakeRefresher{}
	svc := NewService(store, refresher, zerolog.Nop())

	token, err := svc.ValidAccessToken(context.Background(), conn.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "stored-access" {
		t.Errorf("expected stored token, got %q", token)
	}
	if refresher.calls != 0 {
		t.Errorf("expected no refresh attempt, got %d", refresher.calls)
	}
	if store.updated {
		t.Error("expected no token update")
	}
}

func TestValidAccessToken_RefreshSuccess(t *testing.T) {
	oldExpiry := time.Now().Add(-time.Minute)
	conn := activeConnection(oldExpiry)
	store := &fakeStore{conn: conn}
	refresher := &fakeRefresher{
		token: &oauth2.Token{
			AccessToken: "new-access",
			Expiry:      time.Now().Add(time.Hour),
		},
	}
	svc := NewService(store, refresher, zerolog.Nop())

	token, err := svc.ValidAccessToken(context.Background(), conn.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new-access" {
		t.Errorf("expected new token, got %q", token)
	}
	if !store.updated {
		t.Fatal("expected tokens to be persisted")
	}
	if store.savedRefresh != "stored-refresh" {
		t.Errorf("expected refresh token fallback, got %q", store.savedRefresh)
	}
	if !store.savedExpiry.After(oldExpiry) {
		t.Errorf("expected expiry to move forward: old %v, new %v", oldExpiry, store.savedExpiry)
	}
}

func TestValidAccessToken_RefreshRotation(t *testing.T) {
	conn := activeConnection(time.Now().Add(-time.Minute))
	store := &fakeStore{conn: conn}
	refresher := &fakeRefresher{
		token: &oauth2.Token{
			AccessToken:  "new-access",
			RefreshToken: "rotated-refresh",
			Expiry:       time.Now().Add(time.Hour),
		},
	}
	svc := NewService(store, refresher, zerolog.Nop())

	if _, err := svc.ValidAccessToken(context.Background(), conn.UserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.savedRefresh != "rotated-refresh" {
		t.Errorf("expected rotated refresh token, got %q", store.savedRefresh)
	}
}

func TestValidAccessToken_RefreshMissingExpiry(t *testing.T) {
	conn := activeConnection(time.Now().Add(-time.Minute))
	store := &fakeStore{conn: conn}
	refresher := &fakeRefresher{
		token: &oauth2.Token{AccessToken: "new-access"},
	}
	svc := NewService(store, refresher, zerolog.Nop())

	if _, err := svc.ValidAccessToken(context.Background(), conn.UserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.savedExpiry.IsZero() || !store.savedExpiry.After(time.Now()) {
		t.Errorf("expected a future expiry to be assumed, got %v", store.savedExpiry)
	}

	// The assumed expiry must keep the next call local.
	if _, err := svc.ValidAccessToken(context.Background(), conn.UserID); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if refresher.calls != 1 {
		t.Errorf("expected exactly one refresh attempt, got %d", refresher.calls)
	}
}

func TestValidAccessToken_RefreshFailure(t *testing.T) {
	conn := activeConnection(time.Now().Add(-time.Minute))
	store := &fakeStore{conn: conn}
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	svc := NewService(store, refresher, zerolog.Nop())

	_, err := svc.ValidAccessToken(context.Background(), conn.UserID)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if !store.deactivated {
		t.Error("expected connection to be deactivated")
	}
	if conn.IsActive {
		t.Error("expected connection to show inactive after failed refresh")
	}

	// Every later call is a local check: no second refresh attempt.
	if _, err := svc.ValidAccessToken(context.Background(), conn.UserID); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected on second call, got %v", err)
	}
	if refresher.calls != 1 {
		t.Errorf("expected exactly one refresh attempt, got %d", refresher.calls)
	}
}

func TestValidAccessToken_StorageError(t *testing.T) {
	store := &fakeStore{getErr: errors.New("connection reset")}
	svc := NewService(store, &fakeRefresher{}, zerolog.Nop())

	_, err := svc.ValidAccessToken(context.Background(), uuid.New())
	if err == nil || errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}
}
