// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// DefaultTimeout bounds each backend operation started from the screen.
const DefaultTimeout = 2 * time.Minute

// =============================================================================
// COLLABORATORS
// =============================================================================

// Conversation is the part of *conversation.Synchronizer the screen uses.
type Conversation interface {
	Send(ctx context.Context, text string, attachments []model.Attachment, mode model.Mode) (*model.Message, error)
	StartNew(ctx context.Context)
	RefreshRoster(ctx context.Context, page int) error
	Open(ctx context.Context, id string) (*model.Conversation, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, title string) error
	Share(ctx context.Context, id string) (string, error)
	EnterProject(ctx context.Context, p model.Project)
	LeaveProject(ctx context.Context)
	Models() []string
	SelectModel(name string) error
	SearchAvailable() bool
	Stage(atts ...model.Attachment)
	Unstage(name string) bool
	Snapshot() conversation.State
	Subscribe(fn func(conversation.State)) func()
}

// Projects lists the projects /project can enter.
type Projects interface {
	List(ctx context.Context) ([]model.Project, error)
}

// Deps are the collaborators of the chat screen.
type Deps struct {
	Conversation Conversation
	Projects     Projects
	Policy       attach.Policy
	Theme        *styles.Theme
	Logger       *zap.Logger

	// Timeout bounds each operation; DefaultTimeout when zero.
	Timeout time.Duration
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	conv     Conversation
	projects Projects
	policy   attach.Policy
	theme    *styles.Theme
	log      *zap.Logger
	timeout  time.Duration

	keys     KeyMap
	help     help.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// state is the latest synchronizer snapshot.
	state       conversation.State
	updates     chan conversation.State
	unsubscribe func()

	// mode applies to the next message only.
	mode     model.Mode
	selected int
	notice   string
	err      error
	spinning bool
	showHelp bool
	quitting bool

	width  int
	height int
}

// New creates the chat screen and subscribes it to the synchronizer.
func New(deps Deps) Model {
	theme := deps.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message or /help"
	ti.CharLimit = 8192
	ti.PromptStyle = theme.InputPrompt
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	// A slot of one keeps only the newest snapshot.
	updates := make(chan conversation.State, 1)
	unsubscribe := deps.Conversation.Subscribe(func(st conversation.State) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})

	m := Model{
		conv:        deps.Conversation,
		projects:    deps.Projects,
		policy:      deps.Policy,
		theme:       theme,
		log:         logging.OrNop(deps.Logger).Named("tui"),
		timeout:     timeout,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		input:       ti,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		state:       deps.Conversation.Snapshot(),
		updates:     updates,
		unsubscribe: unsubscribe,
	}
	m.updateViewport()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts listening for snapshots and loads the first roster page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForState(), m.refreshRoster(1))
}

// waitForState delivers the next snapshot as a stateMsg.
func (m Model) waitForState() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg{state: st}
	}
}

// State returns the snapshot the screen last rendered.
func (m Model) State() conversation.State {
	return m.state
}

// Err returns the error shown in the status bar, if any.
func (m Model) Err() error {
	return m.err
}

// Notice returns the notice shown in the status bar.
func (m Model) Notice() string {
	return m.notice
}

// Close unsubscribes from the synchronizer.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// op runs fn with a timeout and reports its outcome as an opDoneMsg.
func (m Model) op(fn func(ctx context.Context) (string, error)) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		notice, err := fn(ctx)
		return opDoneMsg{notice: notice, err: err}
	}
}

func (m Model) send(text string, atts []model.Attachment, mode model.Mode) tea.Cmd {
	conv, timeout := m.conv, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := conv.Send(ctx, text, atts, mode)
		return sendDoneMsg{err: err}
	}
}

func (m Model) refreshRoster(page int) tea.Cmd {
	conv := m.conv
	return m.op(func(ctx context.Context) (string, error) {
		return "", conv.RefreshRoster(ctx, page)
	})
}
