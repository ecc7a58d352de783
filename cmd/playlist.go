package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/isthis/internal/formatter"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/desertthunder/isthis/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Create builds the playlist for the artist named by --artist.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	artist, err := models.ParseArtistID(cmd.String("artist"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	engine, logger, err := r.engine(ctx, cmd)
	if err != nil {
		return err
	}
	return r.build(ctx, cmd, engine, logger, artist)
}

// Search resolves the query to an artist, by --select, a prompt or the TUI, then builds its playlist.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	if cmd.Bool("tui") {
		return r.TUI(ctx, cmd, query)
	}

	engine, logger, err := r.engine(ctx, cmd)
	if err != nil {
		return err
	}

	limit := r.searchLimit(cmd)
	var candidates []models.ArtistCandidate
	err = r.withReauth(ctx, func() error {
		var err error
		candidates, err = engine.Search(ctx, nil, query, limit)
		return err
	})
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: no artists match %q", shared.ErrArtistNotFound, query)
	}

	if cmd.Bool("list") {
		if cmd.Bool("json") {
			return r.writeJSON(candidates, true)
		}
		return r.writePlain("%s\n", formatter.CandidatesTable(candidates))
	}

	index := cmd.Int("select")
	if !cmd.IsSet("select") {
		r.writePlain("%s\n", formatter.CandidatesTable(candidates))
		if index, err = r.prompt(len(candidates)); err != nil {
			return err
		}
	}

	candidate, err := tasks.Select(candidates, index)
	if err != nil {
		return err
	}
	logger.Info("Selected artist", "name", candidate.Name, "id", candidate.ID)

	return r.build(ctx, cmd, engine, logger, models.ArtistID(candidate.ID))
}

// engine creates a [tasks.Engine] with a run-scoped logger.
func (r *Runner) engine(ctx context.Context, cmd *cli.Command) (*tasks.Engine, *log.Logger, error) {
	opts, err := r.options(cmd)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := r.spotify(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger := shared.WithLogger(r.logger, "run", shared.GenerateID())
	return tasks.NewEngine(catalog, opts, logger), logger, nil
}

// build previews (--dry-run) or creates the playlist for artist and reports the outcome.
func (r *Runner) build(ctx context.Context, cmd *cli.Command, engine *tasks.Engine, logger *log.Logger, artist models.ArtistID) error {
	count := r.trackCount(cmd)

	if cmd.Bool("dry-run") {
		var preview *tasks.PreviewResult
		err := r.withReauth(ctx, func() error {
			return r.spin(ctx, logger, "Ranking tracks...", func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
				var err error
				preview, err = engine.Preview(ctx, progress, artist)
				return err
			})
		})
		if err != nil {
			return err
		}

		top, err := tasks.SelectTop(preview.Ranked, count)
		if err != nil {
			return err
		}
		return r.report(cmd, &formatter.Ranking{
			Artist:     artist.String(),
			ArtistName: preview.Discovery.ArtistName,
			Title:      tasks.Title(preview.Discovery.ArtistName),
			Discovered: len(preview.Discovery.Tracks),
			Truncated:  preview.Discovery.Truncated,
			Tracks:     top,
		})
	}

	var result *tasks.RunResult
	err := r.withReauth(ctx, func() error {
		owner, err := r.owner(ctx)
		if err != nil {
			return err
		}
		return r.spin(ctx, logger, "Building playlist...", func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
			var err error
			result, err = engine.Run(ctx, progress, artist, owner, count)
			return err
		})
	})

	var perr *tasks.PopulateError
	if errors.As(err, &perr) {
		r.writePlain("⚠ Playlist %q was created but only %d of %d tracks were added.\n", perr.Playlist.Name, perr.Added, perr.Total)
		r.writePlain("  Remove or refill it manually: %s\n", perr.Playlist.URL)
		return err
	}
	if err != nil {
		return err
	}

	return r.report(cmd, &formatter.Ranking{
		Artist:     artist.String(),
		ArtistName: result.ArtistName,
		Title:      result.Playlist.Name,
		Discovered: len(result.Discovery.Tracks),
		Truncated:  result.Discovery.Truncated,
		Tracks:     result.Selected,
		Playlist:   result.Playlist,
		Added:      result.Added,
	})
}

// report writes ranking to --output, as JSON, or as text.
func (r *Runner) report(cmd *cli.Command, ranking *formatter.Ranking) error {
	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(ranking, cmd.String("format"), path)
		if err != nil {
			return err
		}
		r.logger.Info("ranking exported", "path", written, "tracks", len(ranking.Tracks))
		if !cmd.Bool("json") {
			r.writePlain("✓ Ranking written to %s\n", written)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(ranking, true)
	}

	if ranking.Playlist == nil {
		r.writePlain("%s", formatter.RankingToText(ranking))
	}
	return r.writePlain("%s\n", formatter.Summary(ranking))
}

// owner returns user.username, or the authenticated user's ID when it is empty.
func (r *Runner) owner(ctx context.Context) (string, error) {
	if r.config.User.Username != "" {
		return r.config.User.Username, nil
	}

	user, err := r.catalog.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: current user: %w", shared.ErrAPIRequest, err)
	}
	r.logger.Debug("resolved playlist owner", "id", user.ID)
	return user.ID, nil
}

// spin runs action behind a spinner when output is a terminal, logging its progress.
func (r *Runner) spin(ctx context.Context, logger *log.Logger, title string, action func(context.Context, chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()
	defer func() {
		close(progress)
		<-done
	}()

	run := func(ctx context.Context) error { return action(ctx, progress) }
	if !r.interactive {
		return run(ctx)
	}
	return spinner.New().Title(title).Context(ctx).ActionWithErr(run).Run()
}

// prompt asks for a 1-based candidate index on the runner's input.
func (r *Runner) prompt(n int) (int, error) {
	r.writePlain("Select an artist [1-%d]: ", n)

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return 0, fmt.Errorf("%w: no artist selected", shared.ErrMissingArgument)
	}

	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", shared.ErrInvalidSelection, strings.TrimSpace(line))
	}
	return index, nil
}

// withReauth runs fn, and once more after a successful reauthorization when fn fails for lack of a valid token.
func (r *Runner) withReauth(ctx context.Context, fn func() error) error {
	err := fn()
	if reauthed, authErr := r.handleSpotifyAuthError(ctx, err); reauthed {
		if authErr != nil {
			return authErr
		}
		return fn()
	}
	return err
}
