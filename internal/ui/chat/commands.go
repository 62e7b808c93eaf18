// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/model"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errNoConversation = errors.New("no saved conversation selected")
	errNoProjects     = errors.New("projects are not available")
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command is one slash command.
type command struct {
	name string
	args string
	desc string
	run  func(m Model, args string) (tea.Model, tea.Cmd)
}

// commands is set in init since /help renders the list.
var commands []command

func init() {
	commands = []command{
		{"new", "", "start a new conversation", cmdNew},
		{"image", "[prompt]", "generate an image", cmdImage},
		{"search", "[query]", "answer with web search", cmdSearch},
		{"attach", "PATH...", "stage files for the next message", cmdAttach},
		{"detach", "NAME", "remove a staged file", cmdDetach},
		{"model", "[NAME]", "show or select the model", cmdModel},
		{"history", "[PAGE]", "reload the conversation list", cmdHistory},
		{"open", "ID", "open a conversation", cmdOpen},
		{"rename", "TITLE", "rename the active conversation", cmdRename},
		{"delete", "[ID]", "delete a conversation", cmdDelete},
		{"share", "[ID]", "create a public link", cmdShare},
		{"project", "[ID|NAME]", "list projects or enter one", cmdProject},
		{"leave", "", "leave the current project", cmdLeave},
		{"help", "", "toggle help", cmdHelp},
		{"quit", "", "exit", cmdQuit},
	}
}

// parseCommand splits "/name args" into its parts. ok is false when line
// is not a slash command.
func parseCommand(line string) (name, args string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) < 2 {
		return "", "", false
	}
	name, args, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, args, ok := parseCommand(line)
	if !ok {
		m.err = fmt.Errorf("%w: %q", errUnknownCommand, line)
		return m, nil
	}
	c, ok := findCommand(name)
	if !ok {
		m.err = fmt.Errorf("%w: /%s (try /help)", errUnknownCommand, name)
		return m, nil
	}
	m.notice, m.err = "", nil
	return c.run(m, args)
}

// targetID returns the id args names, or the active conversation's id.
func (m Model) targetID(args string) (string, error) {
	if id := strings.TrimSpace(args); id != "" {
		return id, nil
	}
	if m.state.ActiveID != "" {
		return m.state.ActiveID, nil
	}
	return "", errNoConversation
}

// =============================================================================
// HANDLERS
// =============================================================================

func cmdNew(m Model, _ string) (tea.Model, tea.Cmd) {
	m.mode = model.ModeText
	return m, m.newCmd()
}

func cmdImage(m Model, args string) (tea.Model, tea.Cmd) {
	return m.withMode(model.ModeImage, args, "Next message generates an image")
}

func cmdSearch(m Model, args string) (tea.Model, tea.Cmd) {
	if !m.conv.SearchAvailable() {
		m.err = conversation.ErrSearchUnavailable
		return m, nil
	}
	return m.withMode(model.ModeSearch, args, "Next message searches the web")
}

// withMode sends args in mode right away, or arms mode for the next
// message when args is empty.
func (m Model) withMode(mode model.Mode, args, armed string) (tea.Model, tea.Cmd) {
	if args == "" {
		m.mode = mode
		m.notice = armed
		return m, nil
	}
	if m.state.Loading {
		m.notice = "Waiting for the current reply"
		return m, nil
	}
	m.mode = model.ModeText
	return m, m.send(args, nil, mode)
}

func cmdAttach(m Model, args string) (tea.Model, tea.Cmd) {
	paths := strings.Fields(args)
	if len(paths) == 0 {
		m.err = errors.New("usage: /attach PATH...")
		return m, nil
	}
	conv, policy := m.conv, m.policy
	return m, m.op(func(context.Context) (string, error) {
		files, err := policy.LoadAll(paths)
		if err != nil {
			return "", err
		}
		conv.Stage(files...)
		return fmt.Sprintf("Staged %s", strings.Join(model.AttachmentNames(files), ", ")), nil
	})
}

func cmdDetach(m Model, args string) (tea.Model, tea.Cmd) {
	if args == "" {
		m.err = errors.New("usage: /detach NAME")
		return m, nil
	}
	if !m.conv.Unstage(args) {
		m.err = fmt.Errorf("%s is not staged", args)
		return m, nil
	}
	m.setState(m.conv.Snapshot())
	m.notice = "Removed " + args
	return m, nil
}

func cmdModel(m Model, args string) (tea.Model, tea.Cmd) {
	if args == "" {
		m.notice = fmt.Sprintf("Model %s (available: %s)", m.state.Model, strings.Join(m.conv.Models(), ", "))
		return m, nil
	}
	if err := m.conv.SelectModel(args); err != nil {
		m.err = err
		return m, nil
	}
	m.setState(m.conv.Snapshot())
	m.notice = "Using " + args
	return m, nil
}

func cmdHistory(m Model, args string) (tea.Model, tea.Cmd) {
	page := 1
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			m.err = fmt.Errorf("invalid page %q", args)
			return m, nil
		}
		page = n
	}
	conv := m.conv
	return m, m.op(func(ctx context.Context) (string, error) {
		if err := conv.RefreshRoster(ctx, page); err != nil {
			return "", err
		}
		st := conv.Snapshot()
		return fmt.Sprintf("Page %d of %d", st.RosterPage, max(st.RosterPages, 1)), nil
	})
}

func cmdOpen(m Model, args string) (tea.Model, tea.Cmd) {
	if args == "" {
		if e, ok := m.selectedEntry(); ok {
			args = e.ID
		}
	}
	if args == "" {
		m.err = errors.New("usage: /open ID")
		return m, nil
	}
	return m, m.openCmd(args)
}

func cmdRename(m Model, args string) (tea.Model, tea.Cmd) {
	if m.state.ActiveID == "" {
		m.err = errNoConversation
		return m, nil
	}
	if args == "" {
		m.err = conversation.ErrEmptyTitle
		return m, nil
	}
	conv, id := m.conv, m.state.ActiveID
	return m, m.op(func(ctx context.Context) (string, error) {
		return "Renamed to " + args, conv.Rename(ctx, id, args)
	})
}

func cmdDelete(m Model, args string) (tea.Model, tea.Cmd) {
	id, err := m.targetID(args)
	if err != nil {
		m.err = err
		return m, nil
	}
	conv := m.conv
	return m, m.op(func(ctx context.Context) (string, error) {
		return "Deleted " + id, conv.Delete(ctx, id)
	})
}

func cmdShare(m Model, args string) (tea.Model, tea.Cmd) {
	id, err := m.targetID(args)
	if err != nil {
		m.err = err
		return m, nil
	}
	conv := m.conv
	return m, m.op(func(ctx context.Context) (string, error) {
		link, err := conv.Share(ctx, id)
		if err != nil {
			return "", err
		}
		return "Share link: " + link, nil
	})
}

func cmdProject(m Model, args string) (tea.Model, tea.Cmd) {
	if m.projects == nil {
		m.err = errNoProjects
		return m, nil
	}
	conv, projects := m.conv, m.projects
	return m, m.op(func(ctx context.Context) (string, error) {
		list, err := projects.List(ctx)
		if err != nil {
			return "", err
		}
		if args == "" {
			if len(list) == 0 {
				return "No projects", nil
			}
			names := make([]string, len(list))
			for i, p := range list {
				names[i] = fmt.Sprintf("%s (%s)", p.Name, p.ID)
			}
			return "Projects: " + strings.Join(names, ", "), nil
		}
		for _, p := range list {
			if p.ID == args || strings.EqualFold(p.Name, args) {
				conv.EnterProject(ctx, p)
				return "Entered project " + p.Name, nil
			}
		}
		return "", fmt.Errorf("no project %q", args)
	})
}

func cmdLeave(m Model, _ string) (tea.Model, tea.Cmd) {
	if m.state.Project == nil {
		m.notice = "Not in a project"
		return m, nil
	}
	conv := m.conv
	return m, m.op(func(ctx context.Context) (string, error) {
		conv.LeaveProject(ctx)
		return "Left the project", nil
	})
}

func cmdHelp(m Model, _ string) (tea.Model, tea.Cmd) {
	m.showHelp = !m.showHelp
	m.updateViewport()
	return m, nil
}

func cmdQuit(m Model, _ string) (tea.Model, tea.Cmd) {
	return m.quit()
}
