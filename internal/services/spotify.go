// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	trackURIPrefix = "spotify:track:"
)

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a Spotify artist. Simplified artists (credits) only carry ID, Name and URI.
type SpotifyArtist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres"`
	Followers    followers    `json:"followers"`
	Popularity   int          `json:"popularity"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album as returned by the artist album listing.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	AlbumGroup  string          `json:"album_group"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track. Popularity is only present on full track objects.
type SpotifyTrack struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Artists    []SpotifyArtist   `json:"artists"`
	Popularity int               `json:"popularity"`
	URI        string            `json:"uri"`
	LinkedFrom *SpotifyTrackLink `json:"linked_from,omitempty"`
}

// SpotifyTrackLink names the requested track when a market lookup returns a relinked one.
type SpotifyTrackLink struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// spotifyPage is the paging object wrapping every Spotify listing.
type spotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements the [Catalog] interface for Spotify API interactions.
// Uses [oauth2] for authentication and provides methods for catalog reads and playlist writes.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseURL        string
	credentials    map[string]string
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		baseURL:     spotifyBaseURL,
		credentials: credentials,
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{AccessToken: accessToken})
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// OAuthenticate installs token and routes requests through a refreshing [oauth2.TokenSource].
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}

	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source))
	return nil
}

// SetTokenRefreshCallback registers fn to receive tokens obtained by refresh. Must be called before [SpotifyService.OAuthenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 client configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated HTTP request to the Spotify API, encoding body and decoding into result when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return fmt.Errorf("%w: token refresh rejected: %v", shared.ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp, method, endpoint)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response from %s: %v", shared.ErrAPIRequest, endpoint, err)
		}
	}

	return nil
}

// statusError converts a non-2xx response into an error, preferring the API's own message.
func statusError(resp *http.Response, method, endpoint string) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr spotifyError
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s: rate limited (retry after %ss)", shared.ErrAPIRequest, method, endpoint, resp.Header.Get("Retry-After"))
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", shared.ErrAPIRequest, method, endpoint, resp.StatusCode, msg)
	}
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser retrieves the authenticated user as a [models.User].
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: user.ID, DisplayName: user.DisplayName, Country: user.Country}, nil
}

// ArtistAlbums retrieves one page of an artist's albums.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artist models.ArtistID, q AlbumQuery) (*models.AlbumPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampPage(q.Limit)))
	params.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	if q.Market != "" {
		params.Set("market", q.Market)
	}
	if len(q.Groups) > 0 {
		params.Set("include_groups", strings.Join(q.Groups, ","))
	}

	endpoint := fmt.Sprintf("/artists/%s/albums?%s", url.PathEscape(string(artist)), params.Encode())

	var response spotifyPage[SpotifyAlbum]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	page := &models.AlbumPage{
		Albums:  make([]models.Album, 0, len(response.Items)),
		HasMore: response.Next != nil,
	}
	for _, a := range response.Items {
		page.Albums = append(page.Albums, models.Album{
			ID:      a.ID,
			Name:    a.Name,
			Group:   a.AlbumGroup,
			Artists: artistRefs(a.Artists),
		})
	}
	return page, nil
}

// AlbumTracks retrieves one page of an album's tracks.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error) {
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", url.PathEscape(albumID), clampPage(limit), max(offset, 0))

	var response spotifyPage[SpotifyTrack]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	page := &models.TrackPage{
		Tracks:  make([]models.TrackRef, 0, len(response.Items)),
		HasMore: response.Next != nil,
	}
	for _, t := range response.Items {
		page.Tracks = append(page.Tracks, models.TrackRef{
			ID:      t.ID,
			URI:     t.URI,
			Name:    t.Name,
			Artists: artistRefs(t.Artists),
		})
	}
	return page, nil
}

// SeveralTracks retrieves full track records for up to 50 track URIs (or bare IDs).
//
// Spotify answers unknown IDs with null entries; those are reported as an error rather than dropped.
func (s *SpotifyService) SeveralTracks(ctx context.Context, uris []string, market string) ([]models.Track, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(uris) > MaxBatchSize {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed, got %d", shared.ErrInvalidArgument, MaxBatchSize, len(uris))
	}

	ids := make([]string, len(uris))
	for i, u := range uris {
		ids[i] = strings.TrimPrefix(u, trackURIPrefix)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	if market != "" {
		params.Set("market", market)
	}

	var response struct {
		Tracks []*SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/tracks?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	if len(response.Tracks) != len(ids) {
		return nil, fmt.Errorf("%w: requested %d tracks, received %d", shared.ErrAPIRequest, len(ids), len(response.Tracks))
	}

	tracks := make([]models.Track, len(response.Tracks))
	for i, t := range response.Tracks {
		if t == nil {
			return nil, fmt.Errorf("%w: track %s not available", shared.ErrAPIRequest, uris[i])
		}
		tracks[i] = models.Track{Name: t.Name, URI: t.URI, Popularity: t.Popularity}
		if t.LinkedFrom != nil && t.LinkedFrom.URI != t.URI {
			tracks[i].LinkedFrom = t.LinkedFrom.URI
		}
	}
	return tracks, nil
}

// SearchArtists searches the catalog for artists matching query.
func (s *SpotifyService) SearchArtists(ctx context.Context, query string, limit int) ([]models.ArtistCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(clampPage(limit)))

	var response struct {
		Artists spotifyPage[SpotifyArtist] `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	candidates := make([]models.ArtistCandidate, 0, len(response.Artists.Items))
	for _, a := range response.Artists.Items {
		candidates = append(candidates, models.ArtistCandidate{
			ID:         a.ID,
			Name:       a.Name,
			URI:        a.URI,
			Followers:  a.Followers.Total,
			Popularity: a.Popularity,
			Genres:     a.Genres,
			URL:        a.ExternalURLs.Spotify,
		})
	}
	return candidates, nil
}

// CreatePlaylist creates an empty playlist owned by spec.OwnerID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, spec models.PlaylistSpec) (*models.Playlist, error) {
	if spec.OwnerID == "" {
		return nil, fmt.Errorf("%w: playlist owner", shared.ErrMissingArgument)
	}

	body := map[string]any{
		"name":        spec.Title,
		"public":      spec.Public,
		"description": spec.Description,
	}

	var pl SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(spec.OwnerID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &pl); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:     pl.ID,
		URI:    pl.URI,
		Name:   pl.Name,
		URL:    pl.ExternalURLs.Spotify,
		Public: pl.Public,
	}, nil
}

// AddTracksToPlaylist appends up to 100 URIs to a playlist.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxAddSize {
		return fmt.Errorf("%w: maximum %d URIs per add, got %d", shared.ErrInvalidArgument, MaxAddSize, len(uris))
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}

func artistRefs(artists []SpotifyArtist) []models.ArtistRef {
	refs := make([]models.ArtistRef, len(artists))
	for i, a := range artists {
		refs[i] = models.ArtistRef{ID: a.ID, Name: a.Name, URI: a.URI}
	}
	return refs
}

func clampPage(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, MaxPageSize)
}
