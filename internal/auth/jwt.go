package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tunestat/tunestat/internal/db"
)

// ErrInvalidToken is returned for session tokens that are malformed,
// expired, or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid or expired token")

const sessionTTL = 7 * 24 * time.Hour

// SessionClaims are the claims carried by a session token. The subject
// is the local user ID.
type SessionClaims struct {
	Email    string `json:"email"`
	GoogleID string `json:"google_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer with the given signing secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    sessionTTL,
	}
}

// Issue signs a session token for the user.
func (t *TokenIssuer) Issue(user *db.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:    user.Email,
		GoogleID: user.GoogleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token, returning the user ID
// and claims.
func (t *TokenIssuer) Validate(tokenString string) (uuid.UUID, *SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, ErrInvalidToken
	}
	return userID, claims, nil
}
