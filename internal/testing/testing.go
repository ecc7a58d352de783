// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/services"
	"github.com/desertthunder/isthis/internal/shared"
)

// MockCatalog is an in-memory [services.Catalog] that records every call it receives.
//
// Album listings are paged by the requested limit, album tracks likewise. SeveralTracks resolves
// URIs through Tracks and reports unknown URIs the way Spotify does, as an error.
type MockCatalog struct {
	Albums     []models.Album
	Listings   map[string][]models.TrackRef // album tracks keyed by album ID
	Tracks     map[string]models.Track
	Candidates []models.ArtistCandidate
	User       *models.User

	AlbumsErr   error
	TracksErr   map[string]error // keyed by album ID
	EnrichErr   error
	EnrichErrAt int // 1-based SeveralTracks call that fails; 0 fails every call when EnrichErr is set
	SearchErr   error
	CreateErr   error
	AddErr      error
	AddErrAt    int // 1-based AddTracksToPlaylist call that fails
	UserErr     error
	Delay       time.Duration

	mu            sync.Mutex
	inFlight      int
	MaxInFlight   int
	AlbumQueries  []services.AlbumQuery
	TrackRequests []string
	Batches       [][]string
	Searches      []string
	Created       []models.PlaylistSpec
	Added         map[string][][]string
	playlists     int
}

var _ services.Catalog = (*MockCatalog)(nil)

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) ArtistAlbums(ctx context.Context, artist models.ArtistID, q services.AlbumQuery) (*models.AlbumPage, error) {
	m.mu.Lock()
	m.AlbumQueries = append(m.AlbumQueries, q)
	m.mu.Unlock()

	if m.AlbumsErr != nil {
		return nil, m.AlbumsErr
	}

	start, end, more := window(len(m.Albums), q.Limit, q.Offset)
	return &models.AlbumPage{Albums: m.Albums[start:end], HasMore: more}, nil
}

func (m *MockCatalog) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error) {
	m.enter()
	defer m.leave()

	m.mu.Lock()
	m.TrackRequests = append(m.TrackRequests, albumID)
	m.mu.Unlock()

	if err, ok := m.TracksErr[albumID]; ok {
		return nil, err
	}

	tracks := m.Listings[albumID]
	start, end, more := window(len(tracks), limit, offset)
	return &models.TrackPage{Tracks: tracks[start:end], HasMore: more}, nil
}

func (m *MockCatalog) SeveralTracks(ctx context.Context, uris []string, market string) ([]models.Track, error) {
	m.enter()
	defer m.leave()

	m.mu.Lock()
	m.Batches = append(m.Batches, append([]string(nil), uris...))
	call := len(m.Batches)
	m.mu.Unlock()

	if len(uris) > services.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds %d", shared.ErrInvalidArgument, len(uris), services.MaxBatchSize)
	}
	if m.EnrichErr != nil && (m.EnrichErrAt == 0 || m.EnrichErrAt == call) {
		return nil, m.EnrichErr
	}

	tracks := make([]models.Track, len(uris))
	for i, uri := range uris {
		t, ok := m.Tracks[uri]
		if !ok {
			return nil, fmt.Errorf("%w: track %s not available", shared.ErrAPIRequest, uri)
		}
		tracks[i] = t
	}
	return tracks, nil
}

func (m *MockCatalog) SearchArtists(ctx context.Context, query string, limit int) ([]models.ArtistCandidate, error) {
	m.mu.Lock()
	m.Searches = append(m.Searches, query)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return append([]models.ArtistCandidate(nil), m.Candidates[:min(limit, len(m.Candidates))]...), nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, spec models.PlaylistSpec) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Created = append(m.Created, spec)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.playlists++
	id := fmt.Sprintf("playlist%d", m.playlists)
	return &models.Playlist{
		ID:     id,
		URI:    "spotify:playlist:" + id,
		Name:   spec.Title,
		URL:    "https://open.spotify.com/playlist/" + id,
		Public: spec.Public,
	}, nil
}

func (m *MockCatalog) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Added == nil {
		m.Added = make(map[string][][]string)
	}
	m.Added[playlistID] = append(m.Added[playlistID], append([]string(nil), uris...))

	if m.AddErr != nil && (m.AddErrAt == 0 || m.AddErrAt == len(m.Added[playlistID])) {
		return m.AddErr
	}
	return nil
}

func (m *MockCatalog) CurrentUser(ctx context.Context) (*models.User, error) {
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	if m.User == nil {
		return &models.User{ID: "mock_user", Country: "US"}, nil
	}
	return m.User, nil
}

// AddedURIs flattens every URI added to playlistID, in call order.
func (m *MockCatalog) AddedURIs(playlistID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var uris []string
	for _, batch := range m.Added[playlistID] {
		uris = append(uris, batch...)
	}
	return uris
}

func (m *MockCatalog) enter() {
	m.mu.Lock()
	m.inFlight++
	m.MaxInFlight = max(m.MaxInFlight, m.inFlight)
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
}

func (m *MockCatalog) leave() {
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}

func window(n, limit, offset int) (start, end int, more bool) {
	if limit <= 0 {
		limit = services.MaxPageSize
	}
	start = min(max(offset, 0), n)
	end = min(start+limit, n)
	return start, end, end < n
}

// Credit builds an [models.ArtistRef] for id credited as name.
func Credit(id, name string) models.ArtistRef {
	return models.ArtistRef{ID: id, Name: name, URI: "spotify:artist:" + id}
}

// TrackRef builds a discovered track credited to artists.
func TrackRef(id string, artists ...models.ArtistRef) models.TrackRef {
	return models.TrackRef{ID: id, URI: "spotify:track:" + id, Name: "Track " + id, Artists: artists}
}

// Track builds an enriched track for id with the given popularity.
func Track(id string, popularity int) models.Track {
	return models.Track{Name: "Track " + id, URI: "spotify:track:" + id, Popularity: popularity}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
