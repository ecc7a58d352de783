package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
)

// RankStrategy names the ordering applied to artist search results.
type RankStrategy string

const (
	// RankByFollowers orders candidates by follower count, the popularity proxy used by default.
	RankByFollowers RankStrategy = "followers"
	// RankByPopularity orders candidates by the catalog's 0-100 artist popularity.
	RankByPopularity RankStrategy = "popularity"
	// RankByRelevance keeps the catalog's own relevance order.
	RankByRelevance RankStrategy = "relevance"
)

// MaxSearchLimit is the most candidates a search returns.
const MaxSearchLimit = 50

// ParseRankStrategy validates s, defaulting to [RankByFollowers] when empty.
func ParseRankStrategy(s string) (RankStrategy, error) {
	switch r := RankStrategy(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RankByFollowers, nil
	case RankByFollowers, RankByPopularity, RankByRelevance:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown rank strategy %q (followers, popularity, relevance)", shared.ErrInvalidArgument, s)
	}
}

// Search resolves query to at most limit artist candidates ordered by [Options.RankBy].
//
// limit is clamped to 1..50. Sorting is stable, so candidates with equal keys keep relevance order.
func (e *Engine) Search(ctx context.Context, progress chan<- ProgressUpdate, query string, limit int) ([]models.ArtistCandidate, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	limit = min(max(limit, 1), MaxSearchLimit)

	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	candidates, err := e.catalog.SearchArtists(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: artist search %q: %w", shared.ErrCatalogFetch, query, err)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	SortCandidates(candidates, e.opts.RankBy)
	e.sendProgress(progress, searchUpdate(query, len(candidates)))
	e.logger.Debug("Artist search", "query", query, "results", len(candidates), "rank_by", e.opts.RankBy)
	return candidates, nil
}

// SortCandidates orders candidates in place according to strategy, descending and stable.
func SortCandidates(candidates []models.ArtistCandidate, strategy RankStrategy) {
	var key func(models.ArtistCandidate) int
	switch strategy {
	case RankByRelevance:
		return
	case RankByPopularity:
		key = func(c models.ArtistCandidate) int { return c.Popularity }
	default:
		key = func(c models.ArtistCandidate) int { return c.Followers }
	}

	slices.SortStableFunc(candidates, func(a, b models.ArtistCandidate) int {
		return cmp.Compare(key(b), key(a))
	})
}

// Select returns the candidate at the 1-based index.
func Select(candidates []models.ArtistCandidate, index int) (models.ArtistCandidate, error) {
	if len(candidates) == 0 {
		return models.ArtistCandidate{}, fmt.Errorf("%w: no candidates to select from", shared.ErrInvalidSelection)
	}
	if index < 1 || index > len(candidates) {
		return models.ArtistCandidate{}, fmt.Errorf("%w: choose a number between 1 and %d, got %d",
			shared.ErrInvalidSelection, len(candidates), index)
	}
	return candidates[index-1], nil
}
