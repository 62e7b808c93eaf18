// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
)

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	body := m.viewport.View()
	if w := m.theme.SidebarWidth(); w > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.theme.Sidebar.Width(w).Height(m.viewport.Height).Render(m.renderRoster(w)),
			" ",
			body,
		)
	}
	sb.WriteString(body)
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	return sb.String()
}

// updateViewport resizes the transcript and re-renders its content.
func (m *Model) updateViewport() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	if w := m.theme.SidebarWidth(); w > 0 {
		width -= w + 3
	}
	height := m.height - 5
	if height < 3 {
		height = 3
	}
	m.viewport.Width = max(width, 20)
	m.viewport.Height = height

	atBottom := m.viewport.AtBottom()
	if m.showHelp {
		m.viewport.SetContent(m.renderHelp())
		m.viewport.GotoTop()
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if atBottom || m.state.Loading {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// HEADER AND STATUS
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	parts := []string{t.HeaderTitle.Render(util.TruncateRunes(util.SingleLine(m.state.Title()), 60))}
	meta := []string{m.state.Model}
	switch m.state.Phase {
	case conversation.PhasePending:
		meta = append(meta, "unsaved")
	case conversation.PhasePersisted:
		meta = append(meta, m.state.ActiveID)
	}
	parts = append(parts, t.HeaderMeta.Render(strings.Join(meta, " | ")))
	if p := m.state.Project; p != nil {
		parts = append(parts, t.Project.Render("project: "+p.Name))
	}
	return t.Header.Render(strings.Join(parts, "  "))
}

func (m Model) renderStatus() string {
	t := m.theme
	var parts []string
	if m.state.Loading {
		waiting := m.spinner.View() + " waiting for reply"
		if msgs := m.state.Messages(); len(msgs) > 0 && msgs[len(msgs)-1].Role == model.RoleUser {
			waiting += fmt.Sprintf(" to %q", msgs[len(msgs)-1].Preview(30))
		}
		parts = append(parts, waiting)
	}
	if m.mode != model.ModeText {
		parts = append(parts, t.ModeBadge.Render("["+m.mode.String()+"]"))
	}
	if len(m.state.Staged) > 0 {
		parts = append(parts, t.Staged.Render("attached: "+strings.Join(model.AttachmentNames(m.state.Staged), ", ")))
	}
	switch {
	case m.err != nil:
		parts = append(parts, styles.RenderError(m.err.Error()))
	case m.notice != "":
		parts = append(parts, t.Notice.Render(m.notice))
	}
	if len(parts) == 0 {
		parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return t.StatusBar.Render(strings.Join(parts, "  "))
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

func (m Model) renderRoster(width int) string {
	t := m.theme
	if len(m.state.Roster) == 0 {
		return t.Help.Render("No conversations")
	}
	lines := make([]string, 0, len(m.state.Roster)+1)
	for i, e := range m.state.Roster {
		title := util.SingleLine(e.Title)
		if title == "" {
			title = model.DefaultTitle
		}
		marker := "  "
		if e.ID != "" && e.ID == m.state.ActiveID {
			marker = "* "
		}
		line := util.TruncateWidth(marker+title, width)
		switch {
		case e.Placeholder():
			lines = append(lines, t.RosterPending.Render(util.TruncateWidth(marker+title+" (unsaved)", width)))
		case i == m.selected:
			lines = append(lines, t.RosterSelected.Render(line))
		default:
			lines = append(lines, t.RosterItem.Render(line))
		}
	}
	if m.state.RosterPages > 1 {
		lines = append(lines, t.Help.Render(fmt.Sprintf("page %d/%d", m.state.RosterPage, m.state.RosterPages)))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript(width int) string {
	msgs := m.state.Messages()
	if len(msgs) == 0 {
		hint := "Start typing to begin a new conversation."
		if p := m.state.Project; p != nil {
			hint = fmt.Sprintf("Ask anything about %s.", p.Name)
		}
		return m.theme.Help.Render(hint)
	}
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	t := m.theme
	label := t.AssistantLabel
	if msg.Role == model.RoleUser {
		label = t.UserLabel
	}
	header := label.Render(msg.Role.DisplayName())
	if !msg.Timestamp.IsZero() {
		header += " " + t.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))
	}

	wrap := max(width-2, 10)
	lines := []string{header}
	if msg.HasImage() {
		lines = append(lines, t.Body.Render(util.Wrap("[image] "+msg.ImageURL, wrap)))
	}
	if msg.Content != "" {
		lines = append(lines, t.Body.Render(util.Wrap(msg.Content, wrap)))
	}
	if len(msg.Attachments) > 0 {
		lines = append(lines, t.Attachment.Render(util.Wrap("attached: "+strings.Join(msg.Attachments, ", "), wrap)))
	}
	for _, k := range msg.SourceKeys() {
		src := msg.Sources[k]
		lines = append(lines, t.Source.Render(util.Wrap(fmt.Sprintf("[%s] %s <%s>", k, src.Title, src.URL), wrap)))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// HELP
// =============================================================================

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Commands"))
	sb.WriteString("\n\n")
	for _, c := range commands {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(&sb, "  %-22s %s\n", usage, c.desc)
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.HeaderTitle.Render("Keys"))
	sb.WriteString("\n\n")
	sb.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	return sb.String()
}
