package tasks

import (
	"fmt"

	"github.com/desertthunder/isthis/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	DiscoverAlbums Phase = iota
	DiscoverTracks
	EnrichTracks
	CreatePlaylist
	AddTracks
	SearchArtists
)

func (p Phase) String() string {
	switch p {
	case DiscoverAlbums:
		return "discover_albums"
	case DiscoverTracks:
		return "discover_tracks"
	case EnrichTracks:
		return "enrich_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case SearchArtists:
		return "search_artists"
	default:
		return ""
	}
}

func albumPageUpdate(page, albums int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiscoverAlbums,
		Step:    page,
		Message: fmt.Sprintf("Fetched album page %d (%d albums so far)", page, albums),
	}
}

func searchingUpdate(name string, albums int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiscoverTracks,
		Total:   albums,
		Message: fmt.Sprintf("Searching for tracks by %s", name),
	}
}

func albumTracksUpdate(step, total int, album models.Album, kept int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiscoverTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d tracks)", step, total, album.Name, kept),
	}
}

func foundTracksUpdate(found, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiscoverTracks,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Found %d tracks", found),
	}
}

func enrichUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Enriched batch of %d tracks", step, total, size),
	}
}

func creatingPlaylistUpdate(title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", title),
	}
}

func createdPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(added, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Added %d/%d tracks", added, total),
	}
}

func searchUpdate(query string, found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d artists matching %q", found, query),
	}
}
