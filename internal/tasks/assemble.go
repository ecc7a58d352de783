package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
)

// AddChunkSize is the most URIs sent in one playlist add.
const AddChunkSize = 50

// AssembleResult contains the created playlist and the tracks placed in it.
type AssembleResult struct {
	Playlist *models.Playlist
	Tracks   []models.Track
	Added    int
}

// Title returns the playlist title for artistName.
func Title(artistName string) string {
	return TitlePrefix + artistName
}

// SelectTop returns the first count tracks of ranked. A count above len(ranked) truncates, it never pads.
func SelectTop(ranked []models.Track, count int) ([]models.Track, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: track count must be non-negative, got %d", shared.ErrInvalidSelection, count)
	}
	return ranked[:min(count, len(ranked))], nil
}

// Assemble creates "Is This <artistName>" for owner and adds the first count tracks of ranked in order.
//
// A count of zero, or an empty ranking, still creates the playlist and issues no add call.
// Creation failure wraps [shared.ErrPlaylistCreate]. An add failure after creation returns a
// [*PopulateError] naming the orphaned playlist, alongside a result describing what was added.
func (e *Engine) Assemble(ctx context.Context, progress chan<- ProgressUpdate, ranked []models.Track, artistName, owner string, count int) (*AssembleResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	selected, err := SelectTop(ranked, count)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, fmt.Errorf("%w: playlist owner", shared.ErrMissingArgument)
	}

	spec := models.PlaylistSpec{
		OwnerID:     owner,
		Title:       Title(artistName),
		Public:      e.opts.Public,
		Description: e.opts.Description,
		TrackURIs:   models.URIs(selected),
	}

	e.sendProgress(progress, creatingPlaylistUpdate(spec.Title))
	pl, err := e.catalog.CreatePlaylist(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %q for %s: %w", shared.ErrPlaylistCreate, spec.Title, owner, err)
	}
	e.sendProgress(progress, createdPlaylistUpdate(pl))
	e.logger.Debug("Playlist created", "id", pl.ID, "title", spec.Title, "public", spec.Public)

	result := &AssembleResult{Playlist: pl, Tracks: selected}
	for batch := range slices.Chunk(spec.TrackURIs, AddChunkSize) {
		if err := e.catalog.AddTracksToPlaylist(ctx, pl.ID, batch); err != nil {
			return result, &PopulateError{Playlist: pl, Added: result.Added, Total: len(spec.TrackURIs), Err: err}
		}
		result.Added += len(batch)
		e.sendProgress(progress, addTracksUpdate(result.Added, len(spec.TrackURIs)))
	}
	return result, nil
}
