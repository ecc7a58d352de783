package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.Item = candidateItem{}
	_ list.Item = trackItem{}
)

// candidateItem wraps [models.ArtistCandidate] to implement [list.Item].
type candidateItem struct {
	candidate models.ArtistCandidate
}

func (i candidateItem) FilterValue() string { return i.candidate.Name }
func (i candidateItem) Title() string       { return i.candidate.Name }
func (i candidateItem) Description() string {
	desc := fmt.Sprintf("%s followers • popularity %d", humanize.Comma(int64(i.candidate.Followers)), i.candidate.Popularity)
	if len(i.candidate.Genres) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.candidate.Genres, ", "))
	}
	return desc
}

// trackItem wraps a ranked [models.Track] to implement [list.Item].
type trackItem struct {
	rank  int
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return fmt.Sprintf("%d. %s", i.rank, i.track.Name) }
func (i trackItem) Description() string { return fmt.Sprintf("popularity %d", i.track.Popularity) }

func candidateItems(candidates []models.ArtistCandidate) []list.Item {
	items := make([]list.Item, len(candidates))
	for i, c := range candidates {
		items[i] = candidateItem{candidate: c}
	}
	return items
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{rank: i + 1, track: t}
	}
	return items
}
