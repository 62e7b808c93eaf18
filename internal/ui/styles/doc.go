// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the terminal UI.
// Colors are lipgloss.AdaptiveColor values so light and dark terminals both
// read well. Status text always carries an ASCII indicator in addition to
// its color.
package styles
