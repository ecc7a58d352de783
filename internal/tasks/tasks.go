// package tasks implements the "Is This <Artist>" playlist pipeline.
//
// The core abstraction is PlaylistBuilder, which discovers, ranks and assembles an artist's top tracks.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/services"
	"github.com/desertthunder/isthis/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// TitlePrefix precedes the artist name in every generated playlist title.
	TitlePrefix = "Is This "
	// UnknownArtistName is the display name used under [UnknownArtistSentinel].
	UnknownArtistName = "Unknown Artist"
	// DefaultDescription is the attribution attached to created playlists.
	DefaultDescription = "The most popular tracks by this artist, ranked by Spotify popularity. Made with isthis."
	// DefaultTrackCount is the playlist length used when none is requested.
	DefaultTrackCount = 30
)

// UnknownArtistPolicy decides what discovery does when no album or track credits the artist.
type UnknownArtistPolicy string

const (
	UnknownArtistFail     UnknownArtistPolicy = "fail"
	UnknownArtistSentinel UnknownArtistPolicy = "sentinel"
)

// Options configures an [Engine]. The zero value is not useful; start from [DefaultOptions].
type Options struct {
	Market        string              // Catalog market for album and track reads
	IncludeGroups []string            // Album groups to list; empty lists all
	MaxAlbumPages int                 // Album listing pages to read; 0 reads every page
	DedupeTracks  bool                // Drop repeated track URIs, keeping the first, before and after enrichment
	UnknownArtist UnknownArtistPolicy // Behaviour when the artist is credited nowhere
	BatchSize     int                 // Enrichment batch size, clamped to 1..50
	Concurrency   int                 // Catalog reads in flight; 1 is sequential
	RateLimit     float64             // Catalog reads per second; 0 disables throttling
	Public        bool                // Visibility of created playlists
	Description   string              // Description of created playlists
	RankBy        RankStrategy        // Ordering of artist search results
}

// DefaultOptions returns sequential, exhaustive, non-deduplicating options that create public playlists.
func DefaultOptions() Options {
	return Options{
		Market:        "US",
		UnknownArtist: UnknownArtistFail,
		BatchSize:     services.MaxBatchSize,
		Concurrency:   1,
		Public:        true,
		Description:   DefaultDescription,
		RankBy:        RankByFollowers,
	}
}

// PlaylistBuilder defines the operations of the playlist pipeline.
type PlaylistBuilder interface {
	// Run discovers, ranks and assembles a playlist of the artist's top count tracks for owner.
	Run(ctx context.Context, progress chan<- ProgressUpdate, artist models.ArtistID, owner string, count int) (*RunResult, error)

	// Preview discovers and ranks the artist's tracks without writing anything.
	Preview(ctx context.Context, progress chan<- ProgressUpdate, artist models.ArtistID) (*PreviewResult, error)

	// Search resolves a free-text query to artist candidates.
	Search(ctx context.Context, progress chan<- ProgressUpdate, query string, limit int) ([]models.ArtistCandidate, error)
}

// Engine implements [PlaylistBuilder] against a [services.Catalog].
type Engine struct {
	catalog services.Catalog
	opts    Options
	logger  *log.Logger
	limiter *rate.Limiter
}

var _ PlaylistBuilder = (*Engine)(nil)

// NewEngine creates an Engine over catalog. A nil logger discards output.
func NewEngine(catalog services.Catalog, opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.UnknownArtist == "" {
		opts.UnknownArtist = UnknownArtistFail
	}

	e := &Engine{catalog: catalog, opts: opts, logger: logger}
	if opts.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return e
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *Engine) ready() error {
	if e.catalog == nil {
		return fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// PreviewResult contains discovery and ranking output without a playlist.
type PreviewResult struct {
	Discovery *DiscoveryResult
	Ranked    []models.Track
}

// RunResult contains all data from a full pipeline run.
type RunResult struct {
	Artist     models.ArtistID
	ArtistName string
	Discovery  *DiscoveryResult
	Ranked     []models.Track
	Selected   []models.Track
	Playlist   *models.Playlist
	Added      int
}

// Preview runs discovery and ranking.
func (e *Engine) Preview(ctx context.Context, progress chan<- ProgressUpdate, artist models.ArtistID) (*PreviewResult, error) {
	discovery, err := e.Discover(ctx, progress, artist)
	if err != nil {
		return nil, err
	}

	ranked, err := e.Rank(ctx, progress, discovery.URIs())
	if err != nil {
		return nil, err
	}

	// Distinct discovered URIs can relink to one market track.
	if e.opts.DedupeTracks {
		before := len(ranked)
		ranked = dedupe(ranked, func(t models.Track) string { return t.URI })
		if relinked := before - len(ranked); relinked > 0 {
			discovery.Duplicates += relinked
			e.logger.Info("Dropped relinked duplicates", "count", relinked)
		}
	}
	return &PreviewResult{Discovery: discovery, Ranked: ranked}, nil
}

// Run performs the full pipeline: discover, rank, assemble.
//
// Every call creates a new playlist; identical inputs produce distinct playlists.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate, artist models.ArtistID, owner string, count int) (*RunResult, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: track count must be non-negative, got %d", shared.ErrInvalidSelection, count)
	}

	preview, err := e.Preview(ctx, progress, artist)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Artist:     artist,
		ArtistName: preview.Discovery.ArtistName,
		Discovery:  preview.Discovery,
		Ranked:     preview.Ranked,
	}

	assembled, err := e.Assemble(ctx, progress, preview.Ranked, preview.Discovery.ArtistName, owner, count)
	if assembled != nil {
		result.Selected = assembled.Tracks
		result.Playlist = assembled.Playlist
		result.Added = assembled.Added
	}
	if err != nil {
		var perr *PopulateError
		if errors.As(err, &perr) {
			result.Playlist = perr.Playlist
			result.Added = perr.Added
			return result, err
		}
		return nil, err
	}

	e.logger.Info("Playlist created", "name", result.Playlist.Name, "tracks", result.Added, "url", result.Playlist.URL)
	return result, nil
}

// PopulateError reports a playlist that was created but not fully filled.
//
// The playlist remains on the remote service; Playlist identifies it for manual cleanup.
type PopulateError struct {
	Playlist *models.Playlist
	Added    int // URIs added before the failure
	Total    int // URIs that should have been added
	Err      error
}

func (e *PopulateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: added %d of %d tracks to playlist %s", shared.ErrPlaylistPopulate, e.Added, e.Total, e.Playlist.ID)
	if e.Playlist.URL != "" {
		fmt.Fprintf(&b, " (%s)", e.Playlist.URL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is matches [shared.ErrPlaylistPopulate].
func (e *PopulateError) Is(target error) bool {
	return target == shared.ErrPlaylistPopulate
}

func (e *PopulateError) Unwrap() error {
	return e.Err
}
