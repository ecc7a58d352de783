package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/isthis/internal/formatter"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/desertthunder/isthis/internal/tasks"
	th "github.com/desertthunder/isthis/internal/testing"
)

var (
	artist = th.Credit("art1", "The Artist")
	other  = th.Credit("other", "Someone Else")
)

func testCatalog() *th.MockCatalog {
	return &th.MockCatalog{
		Albums: []models.Album{{ID: "al1", Name: "First", Artists: []models.ArtistRef{artist}}},
		Listings: map[string][]models.TrackRef{
			"al1": {th.TrackRef("t1", artist), th.TrackRef("t2", artist), th.TrackRef("t3", other)},
		},
		Tracks: map[string]models.Track{
			"spotify:track:t1": th.Track("t1", 10),
			"spotify:track:t2": th.Track("t2", 90),
			"spotify:track:t3": th.Track("t3", 50),
		},
		Candidates: []models.ArtistCandidate{
			{ID: "imposter", Name: "The Artist Tribute", Followers: 10},
			{ID: "art1", Name: "The Artist", Followers: 1_000_000},
		},
	}
}

func testRunner(cat *th.MockCatalog, input string) (*Runner, *bytes.Buffer) {
	config := shared.DefaultConfig()
	config.User.Username = "me"

	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{
		Config:  config,
		Catalog: cat,
		Logger:  log.New(io.Discard),
		Output:  output,
		Input:   strings.NewReader(input),
	}), output
}

func run(r *Runner, args ...string) error {
	return r.App().Run(context.Background(), append([]string{"isthis", "--env-file", ""}, args...))
}

func TestCreate(t *testing.T) {
	t.Run("creates the playlist from an artist URI", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "create", "--artist", "spotify:artist:art1", "--tracks", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(cat.Created) != 1 {
			t.Fatalf("expected one playlist, got %d", len(cat.Created))
		}
		spec := cat.Created[0]
		if spec.Title != "Is This The Artist" || spec.OwnerID != "me" || !spec.Public {
			t.Errorf("unexpected playlist spec %+v", spec)
		}
		if got := cat.AddedURIs("playlist1"); !slices.Equal(got, []string{"spotify:track:t2", "spotify:track:t1"}) {
			t.Errorf("expected tracks ranked by popularity, got %v", got)
		}
		if !strings.Contains(output.String(), `Playlist "Is This The Artist" created and 2 songs added`) {
			t.Errorf("expected summary, got %q", output.String())
		}
		if !strings.Contains(output.String(), "https://open.spotify.com/playlist/playlist1") {
			t.Errorf("expected playlist URL, got %q", output.String())
		}
	})

	t.Run("accepts an open.spotify.com URL and a track count above the discovered total", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "create", "-a", "https://open.spotify.com/artist/art1?si=abc", "-n", "10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "created and 2 songs added") {
			t.Errorf("expected both tracks, got %q", output.String())
		}
	})

	t.Run("creates a private playlist", func(t *testing.T) {
		cat := testCatalog()
		r, _ := testRunner(cat, "")

		if err := run(r, "create", "--artist", "art1", "--private"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cat.Created) != 1 || cat.Created[0].Public {
			t.Errorf("expected a private playlist, got %+v", cat.Created)
		}
	})

	t.Run("resolves the owner from the current user", func(t *testing.T) {
		cat := testCatalog()
		r, _ := testRunner(cat, "")
		r.config.User.Username = ""

		if err := run(r, "create", "--artist", "art1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cat.Created[0].OwnerID != "mock_user" {
			t.Errorf("expected mock_user, got %s", cat.Created[0].OwnerID)
		}
	})

	t.Run("fails when the current user cannot be read", func(t *testing.T) {
		cat := testCatalog()
		cat.UserErr = errors.New("boom")
		r, _ := testRunner(cat, "")
		r.config.User.Username = ""

		err := run(r, "create", "--artist", "art1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if len(cat.Created) != 0 {
			t.Error("expected no playlist")
		}
	})

	t.Run("dry run ranks without creating", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "create", "--artist", "art1", "--dry-run"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cat.Created) != 0 {
			t.Errorf("expected no playlist, got %d", len(cat.Created))
		}

		text := output.String()
		for _, want := range []string{"Is This The Artist", "Tracks: 2 of 2 discovered", "Track t2", "Found 2 tracks by The Artist"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in %q", want, text)
			}
		}
	})

	t.Run("writes JSON", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "create", "--artist", "art1", "--tracks", "1", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var ranking formatter.Ranking
		if err := json.Unmarshal(output.Bytes(), &ranking); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if ranking.Artist != "art1" || ranking.ArtistName != "The Artist" || ranking.Discovered != 2 {
			t.Errorf("unexpected ranking %+v", ranking)
		}
		if len(ranking.Tracks) != 1 || ranking.Tracks[0].URI != "spotify:track:t2" {
			t.Errorf("expected top track only, got %+v", ranking.Tracks)
		}
		if ranking.Playlist == nil || ranking.Added != 1 {
			t.Errorf("expected playlist with one track, got %+v", ranking.Playlist)
		}
	})

	t.Run("exports CSV to --output", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")
		path := filepath.Join(t.TempDir(), "exports", "ranking.csv")

		if err := run(r, "create", "--artist", "art1", "--dry-run", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		th.AssertFileExists(t, path)
		content := th.MustReadFile(t, path)
		if !strings.HasPrefix(content, "Rank,Name,Popularity,URI\n1,Track t2,90,spotify:track:t2\n") {
			t.Errorf("unexpected CSV %q", content)
		}
		if !strings.Contains(output.String(), "Ranking written to "+path) {
			t.Errorf("expected export notice, got %q", output.String())
		}
	})

	t.Run("rejects an unknown export format", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")
		path := filepath.Join(t.TempDir(), "ranking.out")

		err := run(r, "create", "--artist", "art1", "--dry-run", "--output", path, "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects an invalid artist identifier", func(t *testing.T) {
		cat := testCatalog()
		r, _ := testRunner(cat, "")

		err := run(r, "create", "--artist", "spotify:track:t1")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(cat.AlbumQueries) != 0 {
			t.Error("expected no catalog reads")
		}
	})

	t.Run("requires --artist", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")
		if err := run(r, "create"); err == nil {
			t.Error("expected missing flag error")
		}
	})

	t.Run("reports a partially filled playlist", func(t *testing.T) {
		cat := testCatalog()
		cat.AddErr = errors.New("quota")
		cat.AddErrAt = 1
		r, output := testRunner(cat, "")

		err := run(r, "create", "--artist", "art1")
		if !errors.Is(err, shared.ErrPlaylistPopulate) {
			t.Fatalf("expected ErrPlaylistPopulate, got %v", err)
		}
		if len(cat.Created) != 1 {
			t.Errorf("expected no retry after a partial fill, got %d playlists", len(cat.Created))
		}
		text := output.String()
		if !strings.Contains(text, `Playlist "Is This The Artist" was created but only 0 of 2 tracks were added`) {
			t.Errorf("expected partial fill warning, got %q", text)
		}
		if !strings.Contains(text, "https://open.spotify.com/playlist/playlist1") {
			t.Errorf("expected orphan playlist URL, got %q", text)
		}
	})

	t.Run("fails when the artist is credited nowhere", func(t *testing.T) {
		cat := testCatalog()
		cat.Albums[0].Artists = []models.ArtistRef{other}
		cat.Listings["al1"] = []models.TrackRef{th.TrackRef("t3", other)}
		r, _ := testRunner(cat, "")

		err := run(r, "create", "--artist", "art1")
		if !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("selects a candidate by flag", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "search", "--select", "1", "--tracks", "2", "the", "artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Equal(cat.Searches, []string{"the artist"}) {
			t.Errorf("expected joined query, got %v", cat.Searches)
		}
		if len(cat.Created) != 1 || cat.Created[0].Title != "Is This The Artist" {
			t.Errorf("expected playlist for the most followed candidate, got %+v", cat.Created)
		}
		if !strings.Contains(output.String(), "created and 2 songs added") {
			t.Errorf("expected summary, got %q", output.String())
		}
	})

	t.Run("prompts for a candidate", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "1\n")

		if err := run(r, "search", "--dry-run", "the artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		text := output.String()
		if !strings.Contains(text, "Select an artist [1-2]: ") {
			t.Errorf("expected prompt, got %q", text)
		}
		if !strings.Contains(text, "The Artist Tribute") || !strings.Contains(text, "1,000,000") {
			t.Errorf("expected candidate table, got %q", text)
		}
		if !strings.Contains(text, "Found 2 tracks by The Artist") {
			t.Errorf("expected dry run summary, got %q", text)
		}
	})

	t.Run("accepts a final answer without a newline", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "1")
		if err := run(r, "search", "--dry-run", "the artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name  string
		input string
		args  []string
		want  error
	}{
		{name: "non-numeric answer", input: "abc\n", args: []string{"search", "the artist"}, want: shared.ErrInvalidSelection},
		{name: "answer out of range", input: "9\n", args: []string{"search", "the artist"}, want: shared.ErrInvalidSelection},
		{name: "no answer", input: "", args: []string{"search", "the artist"}, want: shared.ErrMissingArgument},
		{name: "select out of range", args: []string{"search", "--select", "0", "the artist"}, want: shared.ErrInvalidSelection},
		{name: "empty query", args: []string{"search"}, want: shared.ErrMissingArgument},
		{name: "blank query", args: []string{"search", "  "}, want: shared.ErrMissingArgument},
		{name: "candidate not credited", args: []string{"search", "--select", "2", "the artist"}, want: shared.ErrArtistNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := testCatalog()
			r, _ := testRunner(cat, tt.input)

			err := run(r, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(cat.Created) != 0 {
				t.Error("expected no playlist")
			}
		})
	}

	t.Run("reports no matches", func(t *testing.T) {
		cat := testCatalog()
		cat.Candidates = nil
		r, _ := testRunner(cat, "")

		err := run(r, "search", "nobody")
		if !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})

	t.Run("lists candidates as JSON", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "search", "--list", "--json", "the artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var candidates []models.ArtistCandidate
		if err := json.Unmarshal(output.Bytes(), &candidates); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(candidates) != 2 || candidates[0].ID != "art1" {
			t.Errorf("expected candidates ranked by followers, got %+v", candidates)
		}
		if len(cat.Created) != 0 {
			t.Error("expected no playlist")
		}
	})

	t.Run("lists candidates in the configured order", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "search", "--list", "--rank-by", "relevance", "the artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		text := output.String()
		if strings.Index(text, "The Artist Tribute") > strings.Index(text, "1,000,000") {
			t.Errorf("expected catalog order, got %q", text)
		}
	})

	t.Run("surfaces search failures", func(t *testing.T) {
		cat := testCatalog()
		cat.SearchErr = errors.New("boom")
		r, _ := testRunner(cat, "")

		err := run(r, "search", "the artist")
		if !errors.Is(err, shared.ErrCatalogFetch) {
			t.Errorf("expected ErrCatalogFetch, got %v", err)
		}
	})
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "negative max album pages", args: []string{"--max-album-pages", "-1"}, want: shared.ErrInvalidArgument},
		{name: "zero concurrency", args: []string{"--concurrency", "0"}, want: shared.ErrInvalidArgument},
		{name: "negative rate limit", args: []string{"--rate-limit", "-2"}, want: shared.ErrInvalidArgument},
		{name: "unknown artist policy", args: []string{"--unknown-artist", "guess"}, want: shared.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := testCatalog()
			r, _ := testRunner(cat, "")

			err := run(r, append([]string{"create", "--artist", "art1"}, tt.args...)...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(cat.AlbumQueries) != 0 {
				t.Error("expected no catalog reads")
			}
		})
	}

	t.Run("rejects an unknown rank strategy", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")
		err := run(r, "search", "--rank-by", "vibes", "the artist")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects an invalid configuration", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")
		r.config.Pipeline.BatchSize = 0

		err := run(r, "create", "--artist", "art1")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("sentinel policy names an uncredited artist", func(t *testing.T) {
		cat := testCatalog()
		cat.Albums[0].Artists = []models.ArtistRef{other}
		cat.Listings["al1"] = []models.TrackRef{th.TrackRef("t3", other)}
		r, _ := testRunner(cat, "")

		if err := run(r, "create", "--artist", "art1", "--unknown-artist", "sentinel"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cat.Created) != 1 || cat.Created[0].Title != tasks.Title(tasks.UnknownArtistName) {
			t.Errorf("expected sentinel title, got %+v", cat.Created)
		}
	})

	t.Run("dedupe drops repeated tracks", func(t *testing.T) {
		cat := testCatalog()
		cat.Albums = append(cat.Albums, models.Album{ID: "al2", Name: "Hits", Artists: []models.ArtistRef{artist}})
		cat.Listings["al2"] = []models.TrackRef{th.TrackRef("t2", artist)}
		r, _ := testRunner(cat, "")

		if err := run(r, "create", "--artist", "art1", "--dedupe"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := cat.AddedURIs("playlist1"); !slices.Equal(got, []string{"spotify:track:t2", "spotify:track:t1"}) {
			t.Errorf("expected deduplicated tracks, got %v", got)
		}
	})

	t.Run("track count falls back to the configured default", func(t *testing.T) {
		cat := testCatalog()
		r, _ := testRunner(cat, "")
		r.config.Pipeline.DefaultTracks = 1

		if err := run(r, "create", "--artist", "art1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := cat.AddedURIs("playlist1"); !slices.Equal(got, []string{"spotify:track:t2"}) {
			t.Errorf("expected one track, got %v", got)
		}
	})

	t.Run("configured zero tracks creates an empty playlist", func(t *testing.T) {
		cat := testCatalog()
		r, _ := testRunner(cat, "")
		r.config.Pipeline.DefaultTracks = 0

		if err := run(r, "create", "--artist", "art1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cat.Created) != 1 || len(cat.AddedURIs("playlist1")) != 0 {
			t.Errorf("expected an empty playlist, got %+v", cat.Created)
		}
	})

	t.Run("default track count matches the pipeline default", func(t *testing.T) {
		if got := shared.DefaultConfig().Pipeline.DefaultTracks; got != tasks.DefaultTrackCount {
			t.Errorf("expected %d, got %d", tasks.DefaultTrackCount, got)
		}
	})

	t.Run("zero tracks creates an empty playlist", func(t *testing.T) {
		cat := testCatalog()
		r, output := testRunner(cat, "")

		if err := run(r, "create", "--artist", "art1", "--tracks", "0"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cat.Created) != 1 || len(cat.AddedURIs("playlist1")) != 0 {
			t.Errorf("expected an empty playlist, got %+v", cat.Created)
		}
		if !strings.Contains(output.String(), "created and 0 songs added") {
			t.Errorf("expected summary, got %q", output.String())
		}
	})
}

func TestHandleSpotifyAuthError(t *testing.T) {
	expired := fmt.Errorf("%w: 401", shared.ErrTokenExpired)

	t.Run("ignores nil and unrelated errors", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")

		if reauthed, err := r.handleSpotifyAuthError(context.Background(), nil); reauthed || err != nil {
			t.Errorf("expected (false, nil), got (%v, %v)", reauthed, err)
		}

		boom := errors.New("boom")
		if reauthed, err := r.handleSpotifyAuthError(context.Background(), boom); reauthed || err != boom {
			t.Errorf("expected (false, boom), got (%v, %v)", reauthed, err)
		}
	})

	t.Run("never retries a partially filled playlist", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")
		perr := &tasks.PopulateError{Playlist: &models.Playlist{ID: "p1"}, Total: 2, Err: expired}

		if reauthed, err := r.handleSpotifyAuthError(context.Background(), perr); reauthed || err != perr {
			t.Errorf("expected (false, perr), got (%v, %v)", reauthed, err)
		}
	})

	t.Run("reports catalogs that cannot reauthorize", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")

		reauthed, err := r.handleSpotifyAuthError(context.Background(), expired)
		if !reauthed {
			t.Error("expected reauthorization to be attempted")
		}
		if !errors.Is(err, shared.ErrTokenExpired) || !strings.Contains(err.Error(), "does not support reauthorization") {
			t.Errorf("expected unsupported reauthorization error, got %v", err)
		}
	})

	t.Run("expired token during a run", func(t *testing.T) {
		cat := testCatalog()
		cat.AlbumsErr = expired
		r, _ := testRunner(cat, "")

		err := run(r, "create", "--artist", "art1")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
		if len(cat.AlbumQueries) != 1 {
			t.Errorf("expected no retry without reauthorization, got %d album reads", len(cat.AlbumQueries))
		}
	})
}

func TestSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: output})

	if err := run(r, "--config", path, "setup"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	th.AssertFileExists(t, path)
	if !strings.Contains(output.String(), "Configuration written to "+path) {
		t.Errorf("expected confirmation, got %q", output.String())
	}
	if !strings.Contains(output.String(), "http://127.0.0.1:3000/callback") {
		t.Errorf("expected redirect URI in next steps, got %q", output.String())
	}

	loaded, err := shared.LoadConfig(path)
	if err != nil {
		t.Fatalf("expected written config to load, got %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("expected written config to be valid, got %v", err)
	}

	again := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: &bytes.Buffer{}})
	if err := run(again, "--config", path, "setup"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for an existing file, got %v", err)
	}
}

func TestBefore(t *testing.T) {
	t.Run("loads a YAML config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "search:\n  limit: 1\nlog:\n  level: debug\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cat := testCatalog()
		logger := log.New(io.Discard)
		r := NewRunner(RunnerOpts{Catalog: cat, Logger: logger, Output: &bytes.Buffer{}})

		if err := run(r, "--config", path, "search", "--list", "the artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.configPath != path || r.config.Search.Limit != 1 {
			t.Errorf("expected config from %s, got %+v", path, r.config.Search)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})

	t.Run("uses defaults when the config file is missing", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Catalog: testCatalog(), Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		path := filepath.Join(t.TempDir(), "missing.toml")
		if err := run(r, "--config", path, "search", "--list", "the artist"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.config.Search.Limit != shared.DefaultConfig().Search.Limit {
			t.Errorf("expected default search limit, got %d", r.config.Search.Limit)
		}
	})

	t.Run("rejects an unparsable config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[search\nlimit = "), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		r := NewRunner(RunnerOpts{Catalog: testCatalog(), Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		err := run(r, "--config", path, "search", "--list", "the artist")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("rejects an unknown log level", func(t *testing.T) {
		r, _ := testRunner(testCatalog(), "")

		err := run(r, "--log-level", "loud", "search", "--list", "the artist")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("reads credentials from the env file", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("ISTHIS_TEST_UNUSED=1\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv(shared.EnvClientID, "env_id")
		t.Setenv(shared.EnvClientSecret, "env_secret")

		r, _ := testRunner(testCatalog(), "")
		args := []string{"isthis", "--env-file", envPath, "search", "--list", "the artist"}
		if err := r.App().Run(context.Background(), args); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if creds := r.config.Credentials.Spotify; creds.ClientID != "env_id" || creds.ClientSecret != "env_secret" {
			t.Errorf("expected credentials from the environment, got %s/%s", creds.ClientID, creds.ClientSecret)
		}
	})
}

func TestSpotify(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = ""
		r := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		if _, err := r.spotify(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("treats the example credentials as missing", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		if _, err := r.spotify(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("builds an unauthenticated service without a saved token", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "id"
		config.Credentials.Spotify.ClientSecret = "secret"
		r := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		catalog, err := r.spotify(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if catalog.Name() != "Spotify" {
			t.Errorf("expected Spotify catalog, got %s", catalog.Name())
		}
		if again, _ := r.spotify(context.Background()); again != catalog {
			t.Error("expected the catalog to be reused")
		}
	})

	t.Run("auth requires credentials", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientSecret = ""
		r := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		if err := run(r, "auth"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
