// package services defines interface Catalog for interacting with the Spotify Web API
package services

import (
	"context"

	"github.com/desertthunder/isthis/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is the capability surface of the remote catalog and playlist store consumed by the pipeline.
type Catalog interface {
	// ArtistAlbums returns one page of the artist's albums.
	ArtistAlbums(ctx context.Context, artist models.ArtistID, q AlbumQuery) (*models.AlbumPage, error)

	// AlbumTracks returns one page of an album's tracks.
	AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error)

	// SeveralTracks resolves at most [MaxBatchSize] track URIs to full track records, in request order.
	SeveralTracks(ctx context.Context, uris []string, market string) ([]models.Track, error)

	// SearchArtists runs a free-text artist search and returns candidates in relevance order.
	SearchArtists(ctx context.Context, query string, limit int) ([]models.ArtistCandidate, error)

	// CreatePlaylist creates an empty playlist described by spec. spec.TrackURIs is ignored.
	CreatePlaylist(ctx context.Context, spec models.PlaylistSpec) (*models.Playlist, error)

	// AddTracksToPlaylist appends uris to the playlist in order.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error

	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [Catalog] for providers authenticated with an OAuth2 authorization code flow.
type OAuthService interface {
	Catalog

	// GetAuthURL returns the consent page URL for state.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the client configuration used to exchange authorization codes.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs token, refreshing it as needed.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// AlbumQuery holds the parameters of an artist album listing.
type AlbumQuery struct {
	Market string
	Groups []string // album, single, appears_on, compilation; empty means all
	Limit  int
	Offset int
}

const (
	// MaxBatchSize is the most identifiers accepted by a single batched track read.
	MaxBatchSize = 50
	// MaxPageSize is the largest page the album and track listings return.
	MaxPageSize = 50
	// MaxAddSize is the most URIs accepted by a single playlist add.
	MaxAddSize = 100
)
