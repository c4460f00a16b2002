package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunestat/tunestat/internal/db"
	"github.com/tunestat/tunestat/internal/spotify"
	"github.com/tunestat/tunestat/internal/tokens"
)

// fakeTokens implements TokenSource for testing.
type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) ValidAccessToken(_ context.Context, _ uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

// fakeProvider returns one configured page per call.
type fakeProvider struct {
	pages [][]spotify.PlayEvent
	err   error
	calls int
}

func (f *fakeProvider) RecentlyPlayed(_ context.Context, _ string, _ int) ([]spotify.PlayEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	if f.calls < len(f.pages)-1 {
		f.calls++
	}
	return page, nil
}

// memCatalog implements Catalog with the storage layer's natural-key
// semantics: artists/songs keyed on Spotify ID, listens deduplicated
// on (user, song, played-at).
type memCatalog struct {
	artists map[string]*db.Artist
	songs   map[string]*db.Song
	listens map[string]struct{}
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		artists: make(map[string]*db.Artist),
		songs:   make(map[string]*db.Song),
		listens: make(map[string]struct{}),
	}
}

func (m *memCatalog) UpsertArtist(_ context.Context, in spotify.Artist) (*db.Artist, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if existing, ok := m.artists[in.ID]; ok {
		existing.Name = in.Name
		return existing, nil
	}
	artist := &db.Artist{ID: uuid.New(), SpotifyID: in.ID, Name: in.Name}
	m.artists[in.ID] = artist
	return artist, nil
}

func (m *memCatalog) UpsertSong(_ context.Context, in spotify.Track, artistID uuid.UUID) (*db.Song, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if existing, ok := m.songs[in.ID]; ok {
		existing.ArtistID = artistID
		return existing, nil
	}
	song := &db.Song{ID: uuid.New(), SpotifyID: in.ID, Name: in.Name, ArtistID: artistID}
	m.songs[in.ID] = song
	return song, nil
}

func (m *memCatalog) RecordListen(_ context.Context, userID, songID uuid.UUID, playedAt time.Time, _ *int) error {
	key := userID.String() + "|" + songID.String() + "|" + playedAt.UTC().Format(time.RFC3339Nano)
	m.listens[key] = struct{}{}
	return nil
}

func playEvent(trackID, trackName, artistID string, playedAt time.Time) spotify.PlayEvent {
	var artists []spotify.Artist
	if artistID != "" {
		artists = []spotify.Artist{{ID: artistID, Name: "Artist " + artistID}}
	}
	return spotify.PlayEvent{
		Track: spotify.Track{
			ID:      trackID,
			Name:    trackName,
			Artists: artists,
		},
		PlayedAt: playedAt,
	}
}

func TestSyncRecentActivity_SkipsMalformed(t *testing.T) {
	playedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events := []spotify.PlayEvent{
		playEvent("t1", "First", "a1", playedAt),
		playEvent("t2", "Broken", "", playedAt.Add(time.Minute)), // no artist
		playEvent("t3", "Third", "a2", playedAt.Add(2*time.Minute)),
	}

	cat := newMemCatalog()
	svc := NewService(
		&fakeTokens{token: "tok"},
		&fakeProvider{pages: [][]spotify.PlayEvent{events}},
		cat,
		zerolog.Nop(),
	)

	result, err := svc.SyncRecentActivity(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SyncedCount != 2 || result.TotalFetched != 3 {
		t.Errorf("expected 2/3, got %d/%d", result.SyncedCount, result.TotalFetched)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Index != 1 {
		t.Fatalf("expected event 1 skipped, got %+v", result.Skipped)
	}
	if result.Skipped[0].TrackName != "Broken" {
		t.Errorf("expected skipped track name, got %q", result.Skipped[0].TrackName)
	}
	if len(cat.listens) != 2 {
		t.Errorf("expected 2 listening events, got %d", len(cat.listens))
	}
}

func TestSyncRecentActivity_OverlappingWindows(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	a := playEvent("ta", "A", "artist", base)
	b := playEvent("tb", "B", "artist", base.Add(time.Minute))
	c := playEvent("tc", "C", "artist", base.Add(2*time.Minute))

	cat := newMemCatalog()
	provider := &fakeProvider{pages: [][]spotify.PlayEvent{
		{a, b},
		{b, c},
	}}
	svc := NewService(&fakeTokens{token: "tok"}, provider, cat, zerolog.Nop())

	userID := uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := svc.SyncRecentActivity(context.Background(), userID); err != nil {
			t.Fatalf("sync %d: unexpected error: %v", i, err)
		}
	}

	if len(cat.listens) != 3 {
		t.Errorf("expected 3 listening events after overlapping syncs, got %d", len(cat.listens))
	}
	if len(cat.artists) != 1 {
		t.Errorf("expected 1 artist row, got %d", len(cat.artists))
	}
	if len(cat.songs) != 3 {
		t.Errorf("expected 3 song rows, got %d", len(cat.songs))
	}
}

func TestSyncRecentActivity_NotConnected(t *testing.T) {
	svc := NewService(
		&fakeTokens{err: tokens.ErrNotConnected},
		&fakeProvider{},
		newMemCatalog(),
		zerolog.Nop(),
	)

	_, err := svc.SyncRecentActivity(context.Background(), uuid.New())
	if !errors.Is(err, tokens.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected to pass through, got %v", err)
	}
}

func TestSyncRecentActivity_FetchFailure(t *testing.T) {
	svc := NewService(
		&fakeTokens{token: "tok"},
		&fakeProvider{err: errors.New("connection timed out")},
		newMemCatalog(),
		zerolog.Nop(),
	)

	_, err := svc.SyncRecentActivity(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected page fetch failure to fail the sync")
	}
	if errors.Is(err, tokens.ErrNotConnected) {
		t.Fatalf("fetch failure must not masquerade as not-connected: %v", err)
	}
}

func TestSyncRecentActivity_EmptyPage(t *testing.T) {
	svc := NewService(
		&fakeTokens{token: "tok"},
		&fakeProvider{pages: [][]spotify.PlayEvent{{}}},
		newMemCatalog(),
		zerolog.Nop(),
	)

	result, err := svc.SyncRecentActivity(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SyncedCount != 0 || result.TotalFetched != 0 {
		t.Errorf("expected 0/0, got %d/%d", result.SyncedCount, result.TotalFetched)
	}
}
