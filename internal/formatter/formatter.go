// package formatter renders artist candidates, ranked tracks and run summaries as text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/dustin/go-humanize"
)

// Ranking is an artist's ranked tracks together with the playlist built from them, if any.
type Ranking struct {
	Artist     string           `json:"artist"`
	ArtistName string           `json:"artist_name"`
	Title      string           `json:"title"`
	Discovered int              `json:"discovered"`
	Truncated  bool             `json:"truncated,omitempty"`
	Tracks     []models.Track   `json:"tracks"`
	Playlist   *models.Playlist `json:"playlist,omitempty"`
	Added      int              `json:"added"`
}

// Export formats accepted by [WriteExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// CandidatesTable renders search candidates as a numbered table with human-readable follower counts.
func CandidatesTable(candidates []models.ArtistCandidate) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Artist", "Followers", "Popularity", "Genres")

	for i, c := range candidates {
		t.Row(
			strconv.Itoa(i+1),
			c.Name,
			humanize.Comma(int64(c.Followers)),
			strconv.Itoa(c.Popularity),
			genres(c.Genres, 3),
		)
	}
	return t.String()
}

func genres(g []string, n int) string {
	if len(g) > n {
		return strings.Join(g[:n], ", ") + ", ..."
	}
	return strings.Join(g, ", ")
}

// RankingToText renders a ranking as a numbered plain-text list.
func RankingToText(r *Ranking) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", r.Title)
	fmt.Fprintf(&buf, "Tracks: %d of %d discovered\n\n", len(r.Tracks), r.Discovered)
	for i, t := range r.Tracks {
		fmt.Fprintf(&buf, "%3d. [%3d] %s (%s)\n", i+1, t.Popularity, t.Name, t.URI)
	}
	if r.Truncated {
		buf.WriteString("\nAlbum listing was truncated; some tracks may be missing.\n")
	}
	return buf.Bytes()
}

// RankingToCSV converts a ranking to CSV with columns: Rank, Name, Popularity, URI
func RankingToCSV(r *Ranking) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Rank", "Name", "Popularity", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, t := range r.Tracks {
		record := []string{strconv.Itoa(i + 1), t.Name, strconv.Itoa(t.Popularity), t.URI}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// RankingToMarkdown converts a ranking to Markdown, linking the playlist when one was created.
func RankingToMarkdown(r *Ranking) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", r.Title)
	if pl := r.Playlist; pl != nil {
		if pl.URL != "" {
			fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n", pl.Name, pl.URL)
		}
		fmt.Fprintf(&buf, "**Visibility**: %s\n", shared.VisibilityString(pl.Public))
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(r.Tracks))

	buf.WriteString("| # | Track | Popularity |\n|---|---|---|\n")
	for i, t := range r.Tracks {
		fmt.Fprintf(&buf, "| %d | %s | %d |\n", i+1, strings.ReplaceAll(t.Name, "|", `\|`), t.Popularity)
	}
	return buf.Bytes()
}

// Summary describes a finished run in one or two lines.
func Summary(r *Ranking) string {
	if r.Playlist == nil {
		return fmt.Sprintf("Found %d tracks by %s", r.Discovered, r.ArtistName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Playlist %q created and %d songs added", r.Playlist.Name, r.Added)
	if r.Playlist.URL != "" {
		fmt.Fprintf(&b, "\n%s", r.Playlist.URL)
	}
	return b.String()
}

// Encode renders r in format.
func Encode(r *Ranking, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RankingToCSV(r)
	case FormatMarkdown, "md":
		return RankingToMarkdown(r), nil
	case FormatText, "text":
		return RankingToText(r), nil
	case FormatJSON, "":
		return shared.MarshalJSON(r, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (json, csv, markdown, txt)", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes r to path in format, creating parent directories.
//
// An empty format is inferred from the file extension.
func WriteExport(r *Ranking, format, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: export path", shared.ErrMissingArgument)
	}
	if format == "" {
		format = FormatFromPath(path)
	}

	data, err := Encode(r, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// FormatFromPath maps a file extension to an export format, defaulting to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatText
	default:
		return FormatJSON
	}
}
