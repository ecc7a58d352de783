package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/desertthunder/isthis/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CandidateView ViewState = iota
	PreviewView
	ConfirmView
	WorkingView
	ResultView
)

// Pipeline is the subset of [tasks.Engine] the TUI drives.
type Pipeline interface {
	Search(ctx context.Context, progress chan<- tasks.ProgressUpdate, query string, limit int) ([]models.ArtistCandidate, error)
	Preview(ctx context.Context, progress chan<- tasks.ProgressUpdate, artist models.ArtistID) (*tasks.PreviewResult, error)
	Assemble(ctx context.Context, progress chan<- tasks.ProgressUpdate, ranked []models.Track, artistName, owner string, count int) (*tasks.AssembleResult, error)
}

var _ Pipeline = (*tasks.Engine)(nil)

// Params are the inputs of one TUI session.
type Params struct {
	Query  string
	Limit  int
	Owner  string
	Count  int
	Public bool
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	pipeline Pipeline
	params   Params
	width    int
	height   int

	candidateList list.Model
	candidates    []models.ArtistCandidate
	trackList     list.Model
	selected      models.ArtistCandidate
	preview       *tasks.PreviewResult

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	spinner      spinner.Model

	result *tasks.AssembleResult
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model that searches for params.Query on start.
func NewModel(ctx context.Context, pipeline Pipeline, params Params) *Model {
	return &Model{
		ctx:      ctx,
		view:     CandidateView,
		pipeline: pipeline,
		params:   params,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Result returns the created playlist and the last error once the program exits.
func (m *Model) Result() (*tasks.AssembleResult, error) {
	return m.result, m.err
}

// View returns the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case CandidateView:
		return m.renderCandidates()
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case WorkingView:
		return m.renderWorking()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Init searches for the configured query.
func (m *Model) Init() tea.Cmd {
	m.view = WorkingView
	return m.startOp(func(progress chan<- tasks.ProgressUpdate) Msg {
		candidates, err := m.pipeline.Search(m.ctx, progress, m.params.Query, m.params.Limit)
		return candidatesFetchedMsg(candidates, err)
	})
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.candidates != nil {
			m.candidateList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.preview != nil {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != WorkingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case CandidateView:
			return m.handleCandidateKeys(msg)
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case WorkingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgCandidatesFetched:
		m.endOp()
		data := msg.data.(candidatesData)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		if len(data.candidates) == 0 {
			m.err = fmt.Errorf("%w: no artists match %q", shared.ErrArtistNotFound, m.params.Query)
			return m, tea.Quit
		}
		m.candidates = data.candidates
		m.candidateList = list.New(candidateItems(data.candidates), list.NewDefaultDelegate(), 0, 0)
		m.candidateList.Title = fmt.Sprintf("Artists matching %q", m.params.Query)
		if m.width > 0 {
			m.candidateList.SetSize(m.width-4, m.height-8)
		}
		m.view = CandidateView
		return m, nil

	case MsgPreviewReady:
		m.endOp()
		data := msg.data.(previewData)
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.selected = data.candidate
		m.preview = data.preview

		top, err := tasks.SelectTop(data.preview.Ranked, m.params.Count)
		if err != nil {
			m.err = err
			m.view = ResultView
			return m, nil
		}
		m.trackList = list.New(trackItems(top), list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Top %d of %d tracks by %s", len(top), len(data.preview.Ranked), data.preview.Discovery.ArtistName)
		if m.width > 0 {
			m.trackList.SetSize(m.width-4, m.height-8)
		}
		m.view = PreviewView
		return m, nil

	case MsgPlaylistCreated:
		m.endOp()
		data := msg.data.(createdData)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleCandidateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.candidateList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.candidateList.SelectedItem().(candidateItem); ok {
				return m, m.startPreview(item.candidate)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.candidateList, cmd = m.candidateList.Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = CandidateView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PreviewView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		return m, m.startAssemble()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = CandidateView
		m.preview = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CandidateView:
		m.candidateList, cmd = m.candidateList.Update(msg)
	case PreviewView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) startPreview(candidate models.ArtistCandidate) tea.Cmd {
	m.view = WorkingView
	return m.startOp(func(progress chan<- tasks.ProgressUpdate) Msg {
		preview, err := m.pipeline.Preview(m.ctx, progress, models.ArtistID(candidate.ID))
		return previewReadyMsg(candidate, preview, err)
	})
}

func (m *Model) startAssemble() tea.Cmd {
	m.view = WorkingView
	ranked := m.preview.Ranked
	name := m.preview.Discovery.ArtistName
	return m.startOp(func(progress chan<- tasks.ProgressUpdate) Msg {
		result, err := m.pipeline.Assemble(m.ctx, progress, ranked, name, m.params.Owner, m.params.Count)
		return playlistCreatedMsg(result, err)
	})
}

// startOp runs fn in the background, streaming its progress until fn's message arrives.
func (m *Model) startOp(fn func(progress chan<- tasks.ProgressUpdate) Msg) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done
	m.progress = tasks.ProgressUpdate{}

	go func() {
		msg := fn(progress)
		close(progress)
		done <- msg
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) endOp() {
	m.progressChan = nil
	m.doneChan = nil
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderCandidates() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.candidateList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderPreview() string {
	createKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create playlist"))
	helpKeys := []key.Binding{createKey, m.keys.back, m.keys.quit}

	var note string
	if m.preview.Discovery.Truncated {
		note = "\n" + styles.warn.Render("Album listing was truncated; some tracks may be missing.")
	}
	return fmt.Sprintf("%s%s\n\n%s", m.trackList.View(), note, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	name := m.preview.Discovery.ArtistName
	title := styles.title.Render(fmt.Sprintf("Create %q?", tasks.Title(name)))
	count := min(m.params.Count, len(m.preview.Ranked))
	info := fmt.Sprintf("\nArtist: %s\nTracks: %d\nVisibility: %s\n", name, count, shared.VisibilityString(m.params.Public))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderWorking() string {
	var phase string
	switch m.progress.Phase {
	case tasks.SearchArtists:
		phase = "Searching artists..."
	case tasks.DiscoverAlbums:
		phase = "Listing albums..."
	case tasks.DiscoverTracks:
		phase = fmt.Sprintf("Collecting tracks (%d/%d albums)", m.progress.Step, m.progress.Total)
	case tasks.EnrichTracks:
		phase = fmt.Sprintf("Ranking tracks (%d/%d batches)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = fmt.Sprintf("Adding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), phase)
	if m.progress.Message != "" {
		b.WriteString(styles.help.Render(m.progress.Message))
	}
	return b.String()
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		var b strings.Builder
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed: %v", m.err)))
		if m.result != nil && m.result.Playlist != nil {
			fmt.Fprintf(&b, "\n\n%s %s", styles.warn.Render("Partially filled playlist:"), styles.link.Render(m.result.Playlist.URL))
		}
		return fmt.Sprintf("%s\n\n%s", b.String(), helpView)
	}

	if m.result == nil || m.result.Playlist == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render(fmt.Sprintf("✓ Playlist %q created and %d songs added", m.result.Playlist.Name, m.result.Added))
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, styles.link.Render(m.result.Playlist.URL), helpView)
}
