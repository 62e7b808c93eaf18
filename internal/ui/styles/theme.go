// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the chat screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header line
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style
	Project     lipgloss.Style

	// Conversation list
	Sidebar        lipgloss.Style
	RosterItem     lipgloss.Style
	RosterSelected lipgloss.Style
	RosterPending  lipgloss.Style

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	Attachment     lipgloss.Style
	Source         lipgloss.Style

	// Input and status
	InputPrompt lipgloss.Style
	Staged      lipgloss.Style
	StatusBar   lipgloss.Style
	ModeBadge   lipgloss.Style
	Spinner     lipgloss.Style
	Notice      lipgloss.Style
	Error       lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme detects the terminal background and builds the styles.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Project = lipgloss.NewStyle().Bold(true).Foreground(Emerald)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.RosterItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.RosterSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		Background(SelectionBg)
	t.RosterPending = lipgloss.NewStyle().Italic(true).Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.Attachment = lipgloss.NewStyle().Foreground(Amber).PaddingLeft(2)
	t.Source = lipgloss.NewStyle().Foreground(Blue).PaddingLeft(2)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.Staged = lipgloss.NewStyle().Foreground(Amber)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.ModeBadge = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Notice = lipgloss.NewStyle().Foreground(Emerald)
	t.Error = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Help = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode is the responsive layout for the current width.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, no conversation list
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// SidebarWidth returns the conversation list width, or 0 when hidden.
func (t *Theme) SidebarWidth() int {
	switch t.GetLayoutMode() {
	case LayoutWide:
		return 32
	case LayoutMedium:
		return 24
	default:
		return 0
	}
}
