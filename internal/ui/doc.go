// Package ui implements the interactive artist picker using bubbletea's Elm architecture.
//
// The TUI walks through one playlist build:
//  1. [CandidateView] : Pick an artist from search results
//  2. [PreviewView] : Review the top ranked tracks
//  3. [ConfirmView] : Confirm playlist creation
//  4. [WorkingView] : Watch discovery, ranking and assembly progress
//  5. [ResultView] : Show the created playlist or the failure
//
// The [Model] follows the Init/Update/View pattern and receives its own messages through the [Msg] union.
// Progress arrives over a channel from the [Pipeline] without blocking it.
//
// Keys are vim-style (j/k, enter, esc, y/n, r, q) with contextual help from charmbracelet/bubbles/help.
package ui
