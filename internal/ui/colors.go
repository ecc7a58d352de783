package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Spotify green plus status colors.
var styles = NewPalette(Colors{
	Title: "#1DB954",
	OK:    "#04B575",
	Err:   "#FF0000",
	Warn:  "#FFA500",
	Help:  "#626262",
	Link:  "#5DADE2",
})

// Colors names the foreground color of each [Palette] role.
type Colors struct {
	Title, OK, Err, Warn, Help, Link string
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	link  lipgloss.Style
}

func NewPalette(c Colors) *Palette {
	return &Palette{
		title: NewBold(c.Title).MarginBottom(1),
		ok:    NewBold(c.OK),
		err:   NewBold(c.Err),
		warn:  NewStyle(c.Warn),
		help:  NewEm(c.Help),
		link:  NewStyle(c.Link).Underline(true),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
