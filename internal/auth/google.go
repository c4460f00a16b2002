// Package auth provides Google sign-in verification and JWT session
// tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// ErrInvalidGoogleToken is returned when a Google ID token fails
// verification or lacks the profile claims the app needs.
var ErrInvalidGoogleToken = errors.New("invalid google id token")

// GoogleProfile is the verified identity extracted from an ID token.
type GoogleProfile struct {
	Sub     string
	Email   string
	Name    string
	Picture *string
}

// GoogleVerifier validates Google ID tokens against the app's OAuth
// client ID.
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a verifier for the given client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// Verify validates the token signature and audience and returns the
// subject profile.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}

	profile := &GoogleProfile{Sub: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok && picture != "" {
		profile.Picture = &picture
	}

	if profile.Sub == "" || profile.Email == "" || profile.Name == "" {
		return nil, ErrInvalidGoogleToken
	}
	return profile, nil
}
