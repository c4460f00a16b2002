package spotify

import (
	"context"
	"fmt"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// OAuth handles the Spotify authorization-code flow and refresh-token
// grants. The authorization URL and code exchange go through the
// spotifyauth authenticator; refresh uses a bare oauth2 config so a
// rejected refresh token surfaces as an error instead of being retried
// behind a self-refreshing client.
type OAuth struct {
	auth *spotifyauth.Authenticator
	conf *oauth2.Config
}

// NewOAuth creates the OAuth flow for the given app credentials.
func NewOAuth(clientID, clientSecret, redirectURI string) *OAuth {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadRecentlyPlayed,
			spotifyauth.ScopeUserTopRead,
		),
	)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}

	return &OAuth{auth: auth, conf: conf}
}

// AuthCodeURL returns the provider authorization URL for the given
// state parameter.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.auth.AuthURL(state)
}

// Exchange trades an authorization code for a token set.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := o.auth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// Refresh performs a refresh-token grant. When the provider does not
// rotate the refresh token, the returned token keeps the one passed in.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := o.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}
	return token, nil
}
