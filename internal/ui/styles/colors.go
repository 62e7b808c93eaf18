// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple marks assistant messages and selections.
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan marks user messages and commands.
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald marks success and the active project.
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

var (
	Rose  = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	Blue  = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}
)

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

var (
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	SelectionBg   = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
)

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet holds ASCII markers shown next to colored status text.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
	Active  string
}

// StatusIndicators are the markers used by the Render helpers.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}

func renderStatus(color lipgloss.AdaptiveColor, indicator, message string) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(indicator + " " + message)
}

// RenderSuccess renders message in green with a success marker.
func RenderSuccess(message string) string {
	return renderStatus(Emerald, StatusIndicators.Success, message)
}

// RenderError renders message in red with an error marker.
func RenderError(message string) string {
	return renderStatus(Rose, StatusIndicators.Error, message)
}

// RenderWarning renders message in amber with a warning marker.
func RenderWarning(message string) string {
	return renderStatus(Amber, StatusIndicators.Warning, message)
}

// RenderInfo renders message in blue with an info marker.
func RenderInfo(message string) string {
	return renderStatus(Blue, StatusIndicators.Info, message)
}

// RenderLink underlines text.
func RenderLink(text string) string {
	return lipgloss.NewStyle().Foreground(Blue).Underline(true).Render(text)
}
