package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/isthis/internal/formatter"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/desertthunder/isthis/internal/tasks"
	"github.com/desertthunder/isthis/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/isthis-tui.log"

// TUI launches the interactive artist picker for query.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command, query string) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine, _, err := r.engine(ctx, cmd)
	if err != nil {
		return err
	}

	var owner string
	if err := r.withReauth(ctx, func() error {
		owner, err = r.owner(ctx)
		return err
	}); err != nil {
		return err
	}

	model := ui.NewModel(ctx, reauthPipeline{Engine: engine, r: r}, ui.Params{
		Query:  query,
		Limit:  r.searchLimit(cmd),
		Owner:  owner,
		Count:  r.trackCount(cmd),
		Public: engine.Options().Public,
	})
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result, err := model.Result()
	if result != nil && result.Playlist != nil {
		r.writePlain("%s\n", formatter.Summary(&formatter.Ranking{
			Title:    result.Playlist.Name,
			Tracks:   result.Tracks,
			Playlist: result.Playlist,
			Added:    result.Added,
		}))
	}
	return err
}

// reauthPipeline runs each TUI operation through [Runner.withReauth].
type reauthPipeline struct {
	*tasks.Engine
	r *Runner
}

var _ ui.Pipeline = reauthPipeline{}

func (p reauthPipeline) Search(ctx context.Context, progress chan<- tasks.ProgressUpdate, query string, limit int) ([]models.ArtistCandidate, error) {
	var candidates []models.ArtistCandidate
	err := p.r.withReauth(ctx, func() error {
		var err error
		candidates, err = p.Engine.Search(ctx, progress, query, limit)
		return err
	})
	return candidates, err
}

func (p reauthPipeline) Preview(ctx context.Context, progress chan<- tasks.ProgressUpdate, artist models.ArtistID) (*tasks.PreviewResult, error) {
	var preview *tasks.PreviewResult
	err := p.r.withReauth(ctx, func() error {
		var err error
		preview, err = p.Engine.Preview(ctx, progress, artist)
		return err
	})
	return preview, err
}

func (p reauthPipeline) Assemble(ctx context.Context, progress chan<- tasks.ProgressUpdate, ranked []models.Track, artistName, owner string, count int) (*tasks.AssembleResult, error) {
	var result *tasks.AssembleResult
	err := p.r.withReauth(ctx, func() error {
		var err error
		result, err = p.Engine.Assemble(ctx, progress, ranked, artistName, owner, count)
		return err
	})
	return result, err
}
