package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tunestat/tunestat/internal/db"
)

func testUser() *db.User {
	return &db.User{
		ID:       uuid.New(),
		GoogleID: "google-123",
		Email:    "person@example.com",
		Name:     "Test Person",
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	user := testUser()

	signed, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userID, claims, err := issuer.Validate(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("expected user id %s, got %s", user.ID, userID)
	}
	if claims.Email != user.Email {
		t.Errorf("expected email %q, got %q", user.Email, claims.Email)
	}
	if claims.GoogleID != user.GoogleID {
		t.Errorf("expected google id %q, got %q", user.GoogleID, claims.GoogleID)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	signed, err := NewTokenIssuer("secret-a").Issue(testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err = NewTokenIssuer("secret-b").Validate(signed)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("test-secret"), ttl: -time.Hour}

	signed, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err = issuer.Validate(signed)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, _, err := issuer.Validate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}
