// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/model"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.setState(msg.state)
		cmds := []tea.Cmd{m.waitForState()}
		if m.state.Loading && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case sendDoneMsg:
		m.setState(m.conv.Snapshot())
		if msg.err != nil && !errors.Is(msg.err, conversation.ErrStaleResponse) {
			m.err = msg.err
			m.log.Debug("send failed", zap.Error(msg.err))
		}
		return m, nil

	case opDoneMsg:
		m.setState(m.conv.Snapshot())
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
		} else if msg.notice != "" {
			m.notice = msg.notice
			m.err = nil
		}
		return m, nil

	case spinner.TickMsg:
		if !m.state.Loading {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// setState adopts a snapshot and keeps the roster cursor in range.
func (m *Model) setState(st conversation.State) {
	m.state = st
	if m.selected >= len(st.Roster) {
		m.selected = len(st.Roster) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.updateViewport()
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.help.Width = msg.Width
	m.input.Width = max(msg.Width-4, 10)
	m.updateViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Cancel):
		m.notice, m.err = "", nil
		m.mode = model.ModeText
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.RosterPrev):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.RosterNext):
		if m.selected < len(m.state.Roster)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.OpenChat):
		entry, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		return m, m.openCmd(entry.ID)

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input or runs it as a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}
	if m.state.Loading {
		m.notice = "Waiting for the current reply"
		return m, nil
	}
	staged := m.state.Staged
	if text == "" && len(staged) == 0 {
		return m, nil
	}
	mode := model.ResolveMode(m.mode == model.ModeSearch, m.mode == model.ModeImage, len(staged) > 0)
	m.input.Reset()
	m.mode = model.ModeText
	m.notice, m.err = "", nil
	return m, m.send(text, staged, mode)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.Close()
	return m, tea.Quit
}

// selectedEntry returns the roster row under the cursor. The unsaved
// placeholder cannot be selected for opening.
func (m Model) selectedEntry() (model.RosterEntry, bool) {
	if m.selected < 0 || m.selected >= len(m.state.Roster) {
		return model.RosterEntry{}, false
	}
	e := m.state.Roster[m.selected]
	if e.Placeholder() {
		return model.RosterEntry{}, false
	}
	return e, true
}

func (m Model) openCmd(id string) tea.Cmd {
	conv := m.conv
	return m.op(func(ctx context.Context) (string, error) {
		c, err := conv.Open(ctx, id)
		if err != nil {
			return "", err
		}
		return "Opened " + c.Title, nil
	})
}

func (m Model) newCmd() tea.Cmd {
	conv := m.conv
	return m.op(func(ctx context.Context) (string, error) {
		conv.StartNew(ctx)
		return "New conversation", nil
	})
}
