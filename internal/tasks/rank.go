package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/services"
	"github.com/desertthunder/isthis/internal/shared"
)

// Rank enriches uris with popularity and orders them most popular first.
//
// URIs are read in contiguous batches of [Options.BatchSize] (at most 50). The sort is stable, so tied
// tracks keep their discovery order and the result does not depend on the batch size. The output has
// exactly one track per input URI; a failed or incomplete batch aborts with [shared.ErrCatalogFetch].
func (e *Engine) Rank(ctx context.Context, progress chan<- ProgressUpdate, uris []string) ([]models.Track, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	batches := chunk(uris, e.batchSize())
	enriched := make([][]models.Track, len(batches))
	var done atomic.Int64

	err := e.forEach(ctx, len(batches), func(ctx context.Context, i int) error {
		batch := batches[i]
		if err := e.wait(ctx); err != nil {
			return fmt.Errorf("%w: batch %d: %w", shared.ErrCatalogFetch, i, err)
		}

		tracks, err := e.catalog.SeveralTracks(ctx, batch, e.opts.Market)
		if err != nil {
			return fmt.Errorf("%w: batch %d (first %s): %w", shared.ErrCatalogFetch, i, batch[0], err)
		}
		if len(tracks) != len(batch) {
			return fmt.Errorf("%w: batch %d (first %s): requested %d tracks, received %d",
				shared.ErrCatalogFetch, i, batch[0], len(batch), len(tracks))
		}
		for j, t := range tracks {
			if t.URI == "" {
				return fmt.Errorf("%w: batch %d: no record for %s", shared.ErrCatalogFetch, i, batch[j])
			}
		}
		enriched[i] = tracks

		step := int(done.Add(1))
		e.logger.Debug("Enriched batch", "batch", i, "size", len(batch))
		e.sendProgress(progress, enrichUpdate(step, len(batches), len(batch)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]models.Track, 0, len(uris))
	for _, tracks := range enriched {
		ranked = append(ranked, tracks...)
	}
	SortByPopularity(ranked)

	e.logger.Info("Ranked tracks", "count", len(ranked), "batches", len(batches))
	return ranked, nil
}

// SortByPopularity sorts tracks by popularity, descending, preserving the relative order of ties.
func SortByPopularity(tracks []models.Track) {
	slices.SortStableFunc(tracks, func(a, b models.Track) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})
}

func (e *Engine) batchSize() int {
	if e.opts.BatchSize <= 0 || e.opts.BatchSize > services.MaxBatchSize {
		return services.MaxBatchSize
	}
	return e.opts.BatchSize
}

// chunk splits items into contiguous slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for c := range slices.Chunk(items, size) {
		out = append(out, c)
	}
	return out
}
