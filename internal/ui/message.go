package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/isthis/internal/models"
	"github.com/desertthunder/isthis/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCandidatesFetched MsgKind = iota
	MsgPreviewReady
	MsgProgressUpdate
	MsgPlaylistCreated
)

type candidatesData struct {
	candidates []models.ArtistCandidate
	err        error
}

type previewData struct {
	candidate models.ArtistCandidate
	preview   *tasks.PreviewResult
	err       error
}

type createdData struct {
	result *tasks.AssembleResult
	err    error
}

// candidatesFetchedMsg is the constructor for [MsgCandidatesFetched]
func candidatesFetchedMsg(candidates []models.ArtistCandidate, err error) Msg {
	return Msg{kind: MsgCandidatesFetched, data: candidatesData{candidates, err}}
}

// previewReadyMsg is the constructor for [MsgPreviewReady]
func previewReadyMsg(candidate models.ArtistCandidate, preview *tasks.PreviewResult, err error) Msg {
	return Msg{kind: MsgPreviewReady, data: previewData{candidate, preview, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// playlistCreatedMsg is the constructor for [MsgPlaylistCreated]
func playlistCreatedMsg(result *tasks.AssembleResult, err error) Msg {
	return Msg{kind: MsgPlaylistCreated, data: createdData{result, err}}
}
