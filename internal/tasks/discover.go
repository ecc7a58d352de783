package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/services"
	"github.com/desertthunder/isthis/internal/shared"
)

// DiscoveryResult contains an artist's display name and every track crediting the artist.
type DiscoveryResult struct {
	ArtistName string            `json:"artist_name"`
	Tracks     []models.TrackRef `json:"tracks"`
	Albums     int               `json:"albums"`     // Albums listed
	Pages      int               `json:"pages"`      // Album listing pages read
	Truncated  bool              `json:"truncated"`  // Listing stopped at MaxAlbumPages with more available
	Duplicates int               `json:"duplicates"` // Tracks dropped by DedupeTracks
}

// URIs returns the discovered track URIs in discovery order.
func (d *DiscoveryResult) URIs() []string {
	uris := make([]string, len(d.Tracks))
	for i, t := range d.Tracks {
		uris[i] = t.URI
	}
	return uris
}

// Discover collects every album track crediting artist, in album-then-track order.
//
// A track is kept only when one of its credited artist identifiers equals artist; names never match.
// Any album or track listing failure aborts discovery with [shared.ErrCatalogFetch].
func (e *Engine) Discover(ctx context.Context, progress chan<- ProgressUpdate, artist models.ArtistID) (*DiscoveryResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if artist == "" {
		return nil, fmt.Errorf("%w: artist identifier", shared.ErrMissingArgument)
	}

	logger := e.logger.With("artist", artist)
	albums, pages, truncated, err := e.listAlbums(ctx, progress, artist)
	if err != nil {
		return nil, err
	}
	if truncated {
		logger.Warn("Album listing truncated; raise max_album_pages or set it to 0 to read every page",
			"pages", pages, "albums", len(albums))
	}

	result := &DiscoveryResult{Albums: len(albums), Pages: pages, Truncated: truncated}
	if len(albums) == 0 && e.opts.UnknownArtist != UnknownArtistSentinel {
		return nil, fmt.Errorf("%w: no albums listed for %s", shared.ErrArtistNotFound, artist)
	}

	name, named := albumCredit(albums, artist)
	if named {
		e.sendProgress(progress, searchingUpdate(name, len(albums)))
		logger.Info("Searching for tracks", "name", name, "albums", len(albums))
	}

	perAlbum := make([][]models.TrackRef, len(albums))
	var done atomic.Int64
	err = e.forEach(ctx, len(albums), func(ctx context.Context, i int) error {
		album := albums[i]
		tracks, err := e.albumTracks(ctx, album.ID)
		if err != nil {
			return fmt.Errorf("%w: album %s (%s): %w", shared.ErrCatalogFetch, album.ID, album.Name, err)
		}

		kept := make([]models.TrackRef, 0, len(tracks))
		for _, t := range tracks {
			if t.Credits(artist) {
				kept = append(kept, t)
			}
		}
		perAlbum[i] = kept

		step := int(done.Add(1))
		logger.Debug("Album tracks", "album", album.ID, "listed", len(tracks), "kept", len(kept))
		e.sendProgress(progress, albumTracksUpdate(step, len(albums), album, len(kept)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, kept := range perAlbum {
		result.Tracks = append(result.Tracks, kept...)
	}

	if !named {
		name, named = trackCredit(result.Tracks, artist)
	}
	if !named {
		if e.opts.UnknownArtist != UnknownArtistSentinel {
			return nil, fmt.Errorf("%w: %s is not credited on any of %d albums", shared.ErrArtistNotFound, artist, len(albums))
		}
		name = UnknownArtistName
		logger.Warn("Artist not credited on any album or track", "name", name)
	}
	result.ArtistName = name

	if e.opts.DedupeTracks {
		before := len(result.Tracks)
		result.Tracks = dedupe(result.Tracks, func(t models.TrackRef) string { return t.URI })
		result.Duplicates = before - len(result.Tracks)
	}

	e.sendProgress(progress, foundTracksUpdate(len(result.Tracks), len(albums)))
	logger.Info("Found tracks", "count", len(result.Tracks), "duplicates_dropped", result.Duplicates)
	return result, nil
}

// listAlbums pages through the artist's albums until the listing is exhausted or MaxAlbumPages is reached.
func (e *Engine) listAlbums(ctx context.Context, progress chan<- ProgressUpdate, artist models.ArtistID) ([]models.Album, int, bool, error) {
	var albums []models.Album
	q := services.AlbumQuery{
		Market: e.opts.Market,
		Groups: e.opts.IncludeGroups,
		Limit:  services.MaxPageSize,
	}

	for pages := 1; ; pages++ {
		if err := e.wait(ctx); err != nil {
			return nil, 0, false, fmt.Errorf("%w: album listing: %w", shared.ErrCatalogFetch, err)
		}

		page, err := e.catalog.ArtistAlbums(ctx, artist, q)
		if err != nil {
			return nil, 0, false, fmt.Errorf("%w: album listing page %d for %s: %w", shared.ErrCatalogFetch, pages, artist, err)
		}
		albums = append(albums, page.Albums...)
		e.sendProgress(progress, albumPageUpdate(pages, len(albums)))

		if !page.HasMore || len(page.Albums) == 0 {
			return albums, pages, false, nil
		}
		if e.opts.MaxAlbumPages > 0 && pages >= e.opts.MaxAlbumPages {
			return albums, pages, true, nil
		}
		q.Offset += len(page.Albums)
	}
}

// albumTracks reads every page of an album's track listing.
func (e *Engine) albumTracks(ctx context.Context, albumID string) ([]models.TrackRef, error) {
	var tracks []models.TrackRef
	for {
		if err := e.wait(ctx); err != nil {
			return nil, err
		}

		page, err := e.catalog.AlbumTracks(ctx, albumID, services.MaxPageSize, len(tracks))
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, page.Tracks...)

		if !page.HasMore || len(page.Tracks) == 0 {
			return tracks, nil
		}
	}
}

// albumCredit returns the artist's credited name on the first album, in listing order, that credits it.
func albumCredit(albums []models.Album, artist models.ArtistID) (string, bool) {
	for _, a := range albums {
		if name, ok := a.CreditName(artist); ok {
			return name, true
		}
	}
	return "", false
}

func trackCredit(tracks []models.TrackRef, artist models.ArtistID) (string, bool) {
	for _, t := range tracks {
		if name, ok := t.CreditName(artist); ok {
			return name, true
		}
	}
	return "", false
}

// dedupe keeps the first item for every URI.
func dedupe[T any](items []T, uri func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := uri(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
