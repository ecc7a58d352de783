package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	th "github.com/desertthunder/isthis/internal/testing"
)

func thomYorkeCandidates() []models.ArtistCandidate {
	names := []string{
		"Thom Yorke", "Radiohead", "Atoms for Peace", "The Smile", "Thom Yorke Tribute",
		"Thomas Yorke", "Yorke", "Thom", "Tom York", "Thom Yorke & Friends", "Thom Yorke Karaoke", "Yorkie",
	}
	followers := []int{1_500_000, 9_000_000, 400_000, 900_000, 120, 50, 3_000, 10, 700, 2_000, 15, 1}
	popularity := []int{70, 80, 55, 70, 5, 1, 20, 2, 10, 30, 3, 0}

	candidates := make([]models.ArtistCandidate, len(names))
	for i, name := range names {
		candidates[i] = models.ArtistCandidate{
			ID:         fmt.Sprintf("a%d", i),
			Name:       name,
			Followers:  followers[i],
			Popularity: popularity[i],
		}
	}
	return candidates
}

func candidateNames(c []models.ArtistCandidate) string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name
	}
	return strings.Join(names, "|")
}

func TestEngine_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("limit and follower ordering", func(t *testing.T) {
		cat := &th.MockCatalog{Candidates: thomYorkeCandidates()}
		got, err := newEngine(cat).Search(ctx, nil, "Thom Yorke", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) > 10 {
			t.Fatalf("expected at most 10 candidates, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].Followers < got[i].Followers {
				t.Errorf("candidates not sorted by followers at %d: %d < %d", i, got[i-1].Followers, got[i].Followers)
			}
		}

		first, err := Select(got, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ID != got[0].ID || first.Name != "Radiohead" {
			t.Errorf("selecting 1 should return the first sorted candidate, got %s", first.Name)
		}
	})

	t.Run("strategies", func(t *testing.T) {
		tests := []struct {
			strategy RankStrategy
			want     string
		}{
			{RankByFollowers, "Radiohead|Thom Yorke|The Smile|Atoms for Peace"},
			{RankByPopularity, "Radiohead|Thom Yorke|The Smile|Atoms for Peace"},
			{RankByRelevance, "Thom Yorke|Radiohead|Atoms for Peace|The Smile"},
		}

		for _, tt := range tests {
			t.Run(string(tt.strategy), func(t *testing.T) {
				cat := &th.MockCatalog{Candidates: thomYorkeCandidates()}
				got, err := newEngine(cat, func(o *Options) { o.RankBy = tt.strategy }).Search(ctx, nil, "Thom Yorke", 4)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if names := candidateNames(got); names != tt.want {
					t.Errorf("order = %s, want %s", names, tt.want)
				}
			})
		}
	})

	t.Run("popularity ties keep relevance order", func(t *testing.T) {
		candidates := []models.ArtistCandidate{
			{Name: "first", Popularity: 50},
			{Name: "second", Popularity: 70},
			{Name: "third", Popularity: 50},
		}
		SortCandidates(candidates, RankByPopularity)
		if names := candidateNames(candidates); names != "second|first|third" {
			t.Errorf("order = %s, want second|first|third", names)
		}
	})

	t.Run("limit is clamped", func(t *testing.T) {
		tests := []struct {
			limit int
			want  int
		}{
			{limit: 0, want: 1},
			{limit: -5, want: 1},
			{limit: 3, want: 3},
			{limit: 500, want: 12},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
				cat := &th.MockCatalog{Candidates: thomYorkeCandidates()}
				got, err := newEngine(cat).Search(ctx, nil, "thom", tt.limit)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != tt.want {
					t.Errorf("expected %d candidates, got %d", tt.want, len(got))
				}
			})
		}
	})

	t.Run("empty query", func(t *testing.T) {
		cat := &th.MockCatalog{}
		if _, err := newEngine(cat).Search(ctx, nil, "   ", 10); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if len(cat.Searches) != 0 {
			t.Error("expected no search call")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		cat := &th.MockCatalog{SearchErr: shared.ErrTokenExpired}
		_, err := newEngine(cat).Search(ctx, nil, "thom", 10)
		if !errors.Is(err, shared.ErrCatalogFetch) || !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrCatalogFetch wrapping ErrTokenExpired, got %v", err)
		}
	})
}

func TestSelect(t *testing.T) {
	candidates := thomYorkeCandidates()[:3]

	tests := []struct {
		name    string
		index   int
		want    string
		wantErr bool
	}{
		{name: "first", index: 1, want: "Thom Yorke"},
		{name: "last", index: 3, want: "Atoms for Peace"},
		{name: "zero", index: 0, wantErr: true},
		{name: "past end", index: 4, wantErr: true},
		{name: "negative", index: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(candidates, tt.index)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidSelection) {
					t.Errorf("expected ErrInvalidSelection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Name)
			}
		})
	}

	if _, err := Select(nil, 1); !errors.Is(err, shared.ErrInvalidSelection) {
		t.Errorf("expected ErrInvalidSelection for empty candidates, got %v", err)
	}
}

func TestParseRankStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    RankStrategy
		wantErr bool
	}{
		{in: "", want: RankByFollowers},
		{in: "Followers", want: RankByFollowers},
		{in: "popularity", want: RankByPopularity},
		{in: " relevance ", want: RankByRelevance},
		{in: "plays", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRankStrategy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseRankStrategy(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}
