// Package spotify provides the Spotify Web API boundary: OAuth token
// exchange and a typed client for the data endpoints the app consumes.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	apiBaseURL = "https://api.spotify.com/v1"
	userAgent  = "tunestat/1.0"
)

// Valid time ranges for the top-artists and top-tracks endpoints.
const (
	RangeShortTerm  = "short_term"
	RangeMediumTerm = "medium_term"
	RangeLongTerm   = "long_term"
)

// Client is a Spotify Web API client. Calls take the access token
// explicitly so the token lifecycle stays with the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Spotify Web API client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: apiBaseURL,
	}
}

// CurrentProfile fetches the profile of the user the token belongs to.
func (c *Client) CurrentProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := c.doGet(ctx, accessToken, "/me", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile response: %w", err)
	}
	return &profile, nil
}

// RecentlyPlayed fetches up to limit of the user's most recent play
// events, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]PlayEvent, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	body, err := c.doGet(ctx, accessToken, "/me/player/recently-played", params)
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	var resp struct {
		Items []PlayEvent `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recently played response: %w", err)
	}
	return resp.Items, nil
}

// TopArtists fetches the user's top artists for a time range.
func (c *Client) TopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]Artist, error) {
	params := url.Values{
		"time_range": {timeRange},
		"limit":      {strconv.Itoa(limit)},
	}
	body, err := c.doGet(ctx, accessToken, "/me/top/artists", params)
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}

	var resp struct {
		Items []Artist `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top artists response: %w", err)
	}
	return resp.Items, nil
}

// TopTracks fetches the user's top tracks for a time range.
func (c *Client) TopTracks(ctx context.Context, accessToken, timeRange string, limit int) ([]Track, error) {
	params := url.Values{
		"time_range": {timeRange},
		"limit":      {strconv.Itoa(limit)},
	}
	body, err := c.doGet(ctx, accessToken, "/me/top/tracks", params)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}

	var resp struct {
		Items []Track `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top tracks response: %w", err)
	}
	return resp.Items, nil
}

// doGet performs an authenticated GET request against the Web API.
func (c *Client) doGet(ctx context.Context, accessToken, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// StatusError is a non-success response from the Web API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify API status %d: %s", e.Code, e.Body)
}
