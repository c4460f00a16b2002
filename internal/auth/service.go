package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tunestat/tunestat/internal/db"
)

// UserStore is the subset of the user repository the auth service
// needs.
type UserStore interface {
	UpsertByGoogleID(ctx context.Context, user *db.User) error
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, picture *string) (*db.User, error)
}

// Verifier validates an identity assertion and returns the verified
// profile.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleProfile, error)
}

// Service implements the sign-in flow: verify the Google assertion,
// find or create the local user, issue a session token.
type Service struct {
	users    UserStore
	verifier Verifier
	issuer   *TokenIssuer
}

// NewService creates an auth service.
func NewService(users UserStore, verifier Verifier, issuer *TokenIssuer) *Service {
	return &Service{
		users:    users,
		verifier: verifier,
		issuer:   issuer,
	}
}

// SignIn verifies a Google ID token, creates the local user on first
// sign-in (refreshing profile fields on later ones), and returns the
// user with a signed session token.
func (s *Service) SignIn(ctx context.Context, idToken string) (*db.User, string, error) {
	profile, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	user := &db.User{
		ID:       uuid.New(),
		GoogleID: profile.Sub,
		Email:    profile.Email,
		Name:     profile.Name,
		Picture:  profile.Picture,
	}
	if err := s.users.UpsertByGoogleID(ctx, user); err != nil {
		return nil, "", fmt.Errorf("upserting user: %w", err)
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// User loads a user by local ID.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*db.User, error) {
	return s.users.Get(ctx, id)
}

// UpdateProfile updates the user's name and picture. Nil fields keep
// their stored values.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name, picture *string) (*db.User, error) {
	return s.users.UpdateProfile(ctx, id, name, picture)
}
