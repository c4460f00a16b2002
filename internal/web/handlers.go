package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/tunestat/tunestat/internal/auth"
	"github.com/tunestat/tunestat/internal/db"
	"github.com/tunestat/tunestat/internal/spotify"
	syncsvc "github.com/tunestat/tunestat/internal/sync"
	"github.com/tunestat/tunestat/internal/tokens"
)

const (
	defaultListLimit  = 20
	defaultPageLimit  = 50
	notConnectedError = "Spotify account not connected or token expired"
)

// AuthService signs users in and manages their profiles.
type AuthService interface {
	SignIn(ctx context.Context, idToken string) (*db.User, string, error)
	User(ctx context.Context, id uuid.UUID) (*db.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, picture *string) (*db.User, error)
}

// SessionValidator verifies bearer session tokens.
type SessionValidator interface {
	Validate(token string) (uuid.UUID, *auth.SessionClaims, error)
}

// TokenSource yields a valid Spotify access token for a user.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// Syncer runs one sync pass for a user.
type Syncer interface {
	SyncRecentActivity(ctx context.Context, userID uuid.UUID) (*syncsvc.Result, error)
}

// SpotifyAPI is the slice of the provider data API the handlers use.
type SpotifyAPI interface {
	CurrentProfile(ctx context.Context, accessToken string) (*spotify.Profile, error)
	RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]spotify.PlayEvent, error)
	TopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]spotify.Artist, error)
	TopTracks(ctx context.Context, accessToken, timeRange string, limit int) ([]spotify.Track, error)
}

// OAuthFlow is the provider authorization-code flow.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ConnectionStore is the slice of the connection repository the
// handlers use.
type ConnectionStore interface {
	Upsert(ctx context.Context, conn *db.Connection) error
	Get(ctx context.Context, userID uuid.UUID) (*db.Connection, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

// HistoryReader serves cached listening history.
type HistoryReader interface {
	RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]db.HistoryEntry, error)
	CountForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	auth        AuthService
	sessions    SessionValidator
	tokens      TokenSource
	syncer      Syncer
	spotify     SpotifyAPI
	oauth       OAuthFlow
	connections ConnectionStore
	history     HistoryReader
	frontendURL string
	logger      zerolog.Logger
}

// HandlersConfig wires the handlers' collaborators.
type HandlersConfig struct {
	Auth        AuthService
	Sessions    SessionValidator
	Tokens      TokenSource
	Syncer      Syncer
	Spotify     SpotifyAPI
	OAuth       OAuthFlow
	Connections ConnectionStore
	History     HistoryReader
	FrontendURL string
	Logger      zerolog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		auth:        cfg.Auth,
		sessions:    cfg.Sessions,
		tokens:      cfg.Tokens,
		syncer:      cfg.Syncer,
		spotify:     cfg.Spotify,
		oauth:       cfg.OAuth,
		connections: cfg.Connections,
		history:     cfg.History,
		frontendURL: cfg.FrontendURL,
		logger:      cfg.Logger,
	}
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	GoogleID string    `json:"googleId"`
	Name     string    `json:"name"`
	Picture  *string   `json:"picture"`
}

func toUserResponse(user *db.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Email:    user.Email,
		GoogleID: user.GoogleID,
		Name:     user.Name,
		Picture:  user.Picture,
	}
}

// GoogleSignIn handles POST /api/auth/google.
func (h *Handlers) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondError(w, http.StatusBadRequest, "Google ID token is required")
		return
	}

	user, sessionToken, err := h.auth.SignIn(r.Context(), req.Token)
	if errors.Is(err, auth.ErrInvalidGoogleToken) {
		respondError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("google sign-in failed")
		respondError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"user":  toUserResponse(user),
		"token": sessionToken,
	})
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.User(r.Context(), userIDFrom(r))
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("loading user failed")
		respondError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// Logout handles POST /api/auth/logout. Sessions are stateless JWTs,
// so the token is discarded client-side; the endpoint exists for the
// frontend's sign-out flow.
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	respondMessage(w, http.StatusOK, nil, "Logged out successfully")
}

// Verify handles POST /api/auth/verify. Reaching it at all means the
// bearer token passed the middleware; the response confirms who the
// token belongs to.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.User(r.Context(), userIDFrom(r))
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("loading user failed")
		respondError(w, http.StatusInternalServerError, "Failed to verify token")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// UpdateProfile handles PUT /api/users/profile. Absent or empty fields
// keep their stored values.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    *string `json:"name"`
		Picture *string `json:"picture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		req.Name = nil
	}
	if req.Picture != nil && *req.Picture == "" {
		req.Picture = nil
	}

	user, err := h.auth.UpdateProfile(r.Context(), userIDFrom(r), req.Name, req.Picture)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("updating user profile failed")
		respondError(w, http.StatusInternalServerError, "Failed to update user profile")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

type publicUserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Picture   *string   `json:"picture"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicProfile handles GET /api/users/{userId}: an unauthenticated
// lookup that exposes only non-sensitive fields.
func (h *Handlers) PublicProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.auth.User(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("loading user failed")
		respondError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"user": publicUserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Picture:   user.Picture,
			CreatedAt: user.CreatedAt,
		},
	})
}

// SpotifyConnect handles GET /api/spotify/connect. The caller's
// redirect URI rides along as the OAuth state and is honored by the
// callback.
func (h *Handlers) SpotifyConnect(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("redirect_uri")
	respondData(w, http.StatusOK, map[string]string{
		"authUrl": h.oauth.AuthCodeURL(state),
	})
}

// SpotifyCallback handles GET /api/spotify/callback: exchange the
// code, resolve the Spotify account, store the connection, send the
// browser back to the frontend.
func (h *Handlers) SpotifyCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn().Err(err).Msg("spotify code exchange failed")
		http.Redirect(w, r, h.frontendURL+"/spotify/error", http.StatusTemporaryRedirect)
		return
	}

	profile, err := h.spotify.CurrentProfile(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Warn().Err(err).Msg("fetching spotify profile failed")
		http.Redirect(w, r, h.frontendURL+"/spotify/error", http.StatusTemporaryRedirect)
		return
	}

	conn := &db.Connection{
		ID:           uuid.New(),
		UserID:       userIDFrom(r),
		SpotifyID:    profile.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if err := h.connections.Upsert(r.Context(), conn); err != nil {
		h.logger.Error().Err(err).Msg("storing spotify connection failed")
		http.Redirect(w, r, h.frontendURL+"/spotify/error", http.StatusTemporaryRedirect)
		return
	}

	redirect := r.URL.Query().Get("state")
	if redirect == "" {
		redirect = h.frontendURL + "/dashboard"
	}
	http.Redirect(w, r, redirect+"?connected=true", http.StatusTemporaryRedirect)
}

// SpotifyStatus handles GET /api/spotify/status.
func (h *Handlers) SpotifyStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connections.Get(r.Context(), userIDFrom(r))
	if errors.Is(err, db.ErrNotFound) {
		respondData(w, http.StatusOK, map[string]any{"connected": false})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("loading spotify connection failed")
		respondError(w, http.StatusInternalServerError, "Failed to get Spotify connection status")
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"connected": conn.IsActive,
		"spotifyId": conn.SpotifyID,
		"expiresAt": conn.ExpiresAt,
	})
}

// SpotifyDisconnect handles POST /api/spotify/disconnect. The row is
// deactivated, not deleted, so a reconnect reuses it.
func (h *Handlers) SpotifyDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.connections.Deactivate(r.Context(), userIDFrom(r)); err != nil {
		h.logger.Error().Err(err).Msg("deactivating spotify connection failed")
		respondError(w, http.StatusInternalServerError, "Failed to disconnect Spotify account")
		return
	}
	respondMessage(w, http.StatusOK, nil, "Spotify account disconnected successfully")
}

// RecentlyPlayed handles GET /api/spotify/recently-played.
func (h *Handlers) RecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	token, ok := h.validToken(w, r)
	if !ok {
		return
	}

	events, err := h.spotify.RecentlyPlayed(r.Context(), token, queryLimit(r, defaultPageLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("fetching recently played failed")
		respondError(w, http.StatusInternalServerError, "Failed to get recently played tracks")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"tracks": events})
}

// TopArtists handles GET /api/spotify/top-artists.
func (h *Handlers) TopArtists(w http.ResponseWriter, r *http.Request) {
	token, ok := h.validToken(w, r)
	if !ok {
		return
	}

	artists, err := h.spotify.TopArtists(r.Context(), token, queryTimeRange(r), queryLimit(r, defaultListLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("fetching top artists failed")
		respondError(w, http.StatusInternalServerError, "Failed to get top artists")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"artists": artists})
}

// TopTracks handles GET /api/spotify/top-tracks.
func (h *Handlers) TopTracks(w http.ResponseWriter, r *http.Request) {
	token, ok := h.validToken(w, r)
	if !ok {
		return
	}

	tracks, err := h.spotify.TopTracks(r.Context(), token, queryTimeRange(r), queryLimit(r, defaultListLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("fetching top tracks failed")
		respondError(w, http.StatusInternalServerError, "Failed to get top tracks")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// Sync handles POST /api/spotify/sync.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncer.SyncRecentActivity(r.Context(), userIDFrom(r))
	if errors.Is(err, tokens.ErrNotConnected) {
		respondError(w, http.StatusUnauthorized, notConnectedError)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("sync failed")
		respondError(w, http.StatusInternalServerError, "Failed to sync Spotify data")
		return
	}

	respondMessage(w, http.StatusOK, map[string]int{
		"syncedCount": result.SyncedCount,
		"totalTracks": result.TotalFetched,
	}, "Successfully synced "+strconv.Itoa(result.SyncedCount)+" tracks")
}

type historyResponse struct {
	PlayedAt      time.Time `json:"playedAt"`
	SongName      string    `json:"songName"`
	ArtistName    string    `json:"artistName"`
	AlbumName     *string   `json:"albumName"`
	AlbumImageURL *string   `json:"albumImageUrl"`
	DurationMs    *int      `json:"durationMs"`
}

// History handles GET /api/spotify/history, serving cached listening
// events so the dashboard works when the provider is unreachable.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	entries, err := h.history.RecentForUser(r.Context(), userID, queryLimit(r, defaultPageLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("loading listening history failed")
		respondError(w, http.StatusInternalServerError, "Failed to get listening history")
		return
	}

	total, err := h.history.CountForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("counting listening history failed")
		respondError(w, http.StatusInternalServerError, "Failed to get listening history")
		return
	}

	items := make([]historyResponse, len(entries))
	for i, e := range entries {
		items[i] = historyResponse{
			PlayedAt:      e.PlayedAt,
			SongName:      e.SongName,
			ArtistName:    e.ArtistName,
			AlbumName:     e.AlbumName,
			AlbumImageURL: e.AlbumImageURL,
			DurationMs:    e.DurationMs,
		}
	}
	respondData(w, http.StatusOK, map[string]any{
		"history": items,
		"total":   total,
	})
}

// validToken resolves a valid access token, writing the 401 itself
// when the user is not connected.
func (h *Handlers) validToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := h.tokens.ValidAccessToken(r.Context(), userIDFrom(r))
	if errors.Is(err, tokens.ErrNotConnected) {
		respondError(w, http.StatusUnauthorized, notConnectedError)
		return "", false
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("resolving access token failed")
		respondError(w, http.StatusInternalServerError, "Failed to resolve Spotify access token")
		return "", false
	}
	return token, true
}

func queryLimit(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 50 {
		return fallback
	}
	return limit
}

func queryTimeRange(r *http.Request) string {
	switch tr := r.URL.Query().Get("time_range"); tr {
	case spotify.RangeShortTerm, spotify.RangeMediumTerm, spotify.RangeLongTerm:
		return tr
	default:
		return spotify.RangeShortTerm
	}
}
