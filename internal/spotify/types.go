package spotify

import (
	"errors"
	"time"
)

// Sentinel errors for malformed provider payloads. The Web API returns
// partial entries often enough (local files, removed tracks) that these
// are normal per-item conditions, not systemic failures.
var (
	ErrMalformedArtist = errors.New("malformed artist payload")
	ErrMalformedTrack  = errors.New("malformed track payload")
	ErrMalformedPlay   = errors.New("malformed play event payload")
)

// Image is one rendition of provider artwork.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist is a Spotify artist payload. Recently-played items carry only
// id and name; the top-artists endpoint fills in the rest.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Images     []Image  `json:"images"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
}

// Validate reports whether the artist carries the fields required to
// upsert it.
func (a Artist) Validate() error {
	if a.ID == "" || a.Name == "" {
		return ErrMalformedArtist
	}
	return nil
}

// ImageURL returns the first image URL, or nil when the artist has none.
func (a Artist) ImageURL() *string {
	return firstImageURL(a.Images)
}

// Album is the album object embedded in a track payload.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a Spotify track payload.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMs int      `json:"duration_ms"`
	Popularity int      `json:"popularity"`
}

// Validate reports whether the track carries the fields required to
// upsert it, including a usable primary artist.
func (t Track) Validate() error {
	if t.ID == "" || t.Name == "" {
		return ErrMalformedTrack
	}
	if len(t.Artists) == 0 {
		return ErrMalformedTrack
	}
	return t.Artists[0].Validate()
}

// PrimaryArtist returns the first listed artist, which is the one a
// song row is linked to.
func (t Track) PrimaryArtist() Artist {
	if len(t.Artists) == 0 {
		return Artist{}
	}
	return t.Artists[0]
}

// AlbumImageURL returns the first album image URL, or nil.
func (t Track) AlbumImageURL() *string {
	return firstImageURL(t.Album.Images)
}

// PlayEvent is one item from the recently-played endpoint.
type PlayEvent struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

// Validate reports whether the event can be materialized into the
// catalog: a well-formed track plus a played-at timestamp.
func (e PlayEvent) Validate() error {
	if e.PlayedAt.IsZero() {
		return ErrMalformedPlay
	}
	return e.Track.Validate()
}

// Profile is the current user's Spotify profile.
type Profile struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	Images      []Image `json:"images"`
}

func firstImageURL(images []Image) *string {
	if len(images) == 0 || images[0].URL == "" {
		return nil
	}
	url := images[0].URL
	return &url
}
