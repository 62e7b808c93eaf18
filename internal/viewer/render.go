// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewer

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

const timeLayout = "2006-01-02 15:04"

// Render writes v as plain text wrapped to width columns.
func Render(w io.Writer, v *View, width int) error {
	if width <= 20 {
		width = DefaultWidth
	}
	var sb strings.Builder

	sb.WriteString(v.Title + "\n")
	sb.WriteString(strings.Repeat("=", min(width, util.StringWidth(v.Title))) + "\n")
	var meta []string
	if v.Model != "" {
		meta = append(meta, "model "+v.Model)
	}
	if !v.CreatedAt.IsZero() {
		meta = append(meta, "created "+v.CreatedAt.Local().Format(timeLayout))
	}
	if !v.SharedAt.IsZero() {
		meta = append(meta, "shared "+v.SharedAt.Local().Format(timeLayout))
	}
	meta = append(meta, fmt.Sprintf("%d messages", len(v.Messages)))
	sb.WriteString(util.Wrap(strings.Join(meta, " | "), width) + "\n")
	if len(v.DocumentNames) > 0 {
		sb.WriteString(util.Wrap("documents: "+strings.Join(v.DocumentNames, ", "), width) + "\n")
	}

	for _, m := range v.Messages {
		sb.WriteString("\n")
		sb.WriteString(RenderMessage(m, width))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// RenderMessage formats one message: a role header followed by the body
// indented two spaces.
func RenderMessage(m *model.Message, width int) string {
	var sb strings.Builder
	header := m.Role.DisplayName()
	if !m.Timestamp.IsZero() {
		header += " (" + m.Timestamp.Local().Format(timeLayout) + ")"
	}
	sb.WriteString(header + ":\n")

	var body []string
	if m.HasImage() {
		body = append(body, "[image] "+m.ImageURL)
	}
	if m.Content != "" {
		body = append(body, m.Content)
	}
	if len(m.Attachments) > 0 {
		body = append(body, "[attached: "+strings.Join(m.Attachments, ", ")+"]")
	}
	for _, key := range m.SourceKeys() {
		src := m.Sources[key]
		body = append(body, fmt.Sprintf("[%s] %s <%s>", key, src.Title, src.URL))
	}

	text := util.Wrap(strings.Join(body, "\n"), width-2)
	sb.WriteString(indent.String(text, 2))
	sb.WriteString("\n")
	return sb.String()
}
