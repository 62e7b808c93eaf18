// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/apitest"
	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/project"
	"github.com/jeranaias/parley/internal/ui/styles"
)

func newTestModel(t *testing.T) (Model, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	client := api.New(srv.URL, auth.NewStaticSource("tok"))
	sync, err := conversation.New(context.Background(), conversation.Deps{
		Backend:      client,
		UserID:       "u1",
		Models:       []string{"gpt-4o", "gpt-4o-mini"},
		SearchModels: []string{"gpt-4o"},
	})
	require.NoError(t, err)

	m := New(Deps{
		Conversation: sync,
		Projects:     project.NewManager(client, "u1", attach.DefaultPolicy(), nil),
		Policy:       attach.DefaultPolicy(),
		Theme:        styles.NewTheme(),
	})
	t.Cleanup(m.Close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), srv
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// drain feeds the results of cmd back into the model.
func drain(m Model, cmd tea.Cmd) Model {
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case sendDoneMsg, opDoneMsg:
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func press(m Model, k tea.KeyMsg) Model {
	next, cmd := m.Update(k)
	return drain(next.(Model), cmd)
}

func submit(m Model, text string) Model {
	m.input.SetValue(text)
	return press(m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line       string
		name, args string
		ok         bool
	}{
		{"/new", "new", "", true},
		{"/image a red fox ", "image", "a red fox", true},
		{"  /Model gpt-4o", "model", "gpt-4o", true},
		{"/", "", "", false},
		{"hello", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			name, args, ok := parseCommand(tc.line)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestSendShowsReply(t *testing.T) {
	m, srv := newTestModel(t)

	m = submit(m, "hello")
	require.NoError(t, m.Err())
	st := m.State()
	assert.Equal(t, conversation.PhasePersisted, st.Phase)
	require.Len(t, st.Messages(), 2)
	assert.Equal(t, "echo: hello", st.Messages()[1].Content)
	assert.Equal(t, 1, srv.ChatCount())
	require.Len(t, st.Roster, 1)
	assert.Equal(t, st.ActiveID, st.Roster[0].ID)

	view := m.View()
	assert.Contains(t, view, "echo: hello")
	assert.Empty(t, m.input.Value())
}

func TestEmptySubmitDoesNothing(t *testing.T) {
	m, srv := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, conversation.PhaseEmpty, next.(Model).State().Phase)
	assert.Zero(t, srv.Calls("POST /generate-response"))
}

func TestImageCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = submit(m, "/image")
	assert.Equal(t, model.ModeImage, m.mode)
	m = submit(m, "a cat")
	assert.Equal(t, model.ModeText, m.mode)

	msgs := m.State().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, apitest.ImageURL, msgs[1].ImageURL)

	m = submit(m, "/image a dog")
	msgs = m.State().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, apitest.ImageURL, msgs[3].ImageURL)
}

func TestSearchCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = submit(m, "/search golang")
	require.NoError(t, m.Err())
	msgs := m.State().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "https://example.test/result", msgs[1].Sources["0"].URL)

	m = submit(m, "/model gpt-4o-mini")
	require.NoError(t, m.Err())
	m = submit(m, "/search again")
	assert.ErrorIs(t, m.Err(), conversation.ErrSearchUnavailable)
	assert.Len(t, m.State().Messages(), 2)
}

func TestAttachDetach(t *testing.T) {
	m, srv := newTestModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o600))

	m = submit(m, "/attach "+path)
	require.NoError(t, m.Err())
	require.Len(t, m.State().Staged, 1)
	assert.Contains(t, m.View(), "attached: notes.txt")

	m = submit(m, "/detach notes.txt")
	assert.Empty(t, m.State().Staged)

	m = submit(m, "/attach "+path)
	m = submit(m, "summarise")
	require.NoError(t, m.Err())
	assert.Empty(t, m.State().Staged)
	msgs := m.State().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"notes.txt"}, msgs[0].Attachments)
	assert.Equal(t, 1, srv.Calls("POST /generate-response"))

	m = submit(m, "/attach "+filepath.Join(dir, "missing.txt"))
	assert.Error(t, m.Err())
}

func TestModelCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = submit(m, "/model")
	assert.Contains(t, m.Notice(), "gpt-4o-mini")

	m = submit(m, "/model nope")
	assert.ErrorIs(t, m.Err(), conversation.ErrUnknownModel)

	m = submit(m, "/model gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", m.State().Model)
}

func TestOpenFromRoster(t *testing.T) {
	m, srv := newTestModel(t)
	id := srv.SeedChat("u1", "Seeded", apitest.Turn{User: "q", Assistant: "a"})

	m = submit(m, "/history")
	require.NoError(t, m.Err())
	require.Len(t, m.State().Roster, 1)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NoError(t, m.Err())
	st := m.State()
	assert.Equal(t, id, st.ActiveID)
	require.Len(t, st.Messages(), 2)
	assert.Equal(t, "a", st.Messages()[1].Content)
	assert.Contains(t, m.View(), "Seeded")
}

func TestConversationCommands(t *testing.T) {
	m, srv := newTestModel(t)
	m = submit(m, "hello")
	id := m.State().ActiveID
	require.NotEmpty(t, id)

	m = submit(m, "/rename Better title")
	require.NoError(t, m.Err())
	assert.Equal(t, "Better title", m.State().Title())

	m = submit(m, "/share")
	require.NoError(t, m.Err())
	assert.True(t, strings.HasPrefix(m.Notice(), "Share link: "+srv.URL+"/share/"), m.Notice())

	m = submit(m, "/delete")
	require.NoError(t, m.Err())
	assert.Equal(t, conversation.PhaseEmpty, m.State().Phase)
	assert.Zero(t, srv.ChatCount())

	m = submit(m, "/delete")
	assert.True(t, errors.Is(m.Err(), errNoConversation))
}

func TestNewConversationKey(t *testing.T) {
	m, _ := newTestModel(t)
	m = submit(m, "hello")
	require.Equal(t, conversation.PhasePersisted, m.State().Phase)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, conversation.PhaseEmpty, m.State().Phase)
	assert.Len(t, m.State().Roster, 1)
}

func TestProjectCommands(t *testing.T) {
	m, srv := newTestModel(t)
	srv.SeedProject("u1", "Research", "Find things")

	m = submit(m, "/project")
	assert.Contains(t, m.Notice(), "Research")

	m = submit(m, "/project research")
	require.NoError(t, m.Err())
	require.NotNil(t, m.State().Project)
	assert.Equal(t, "Research", m.State().Project.Name)

	m = submit(m, "what do we know")
	require.NoError(t, m.Err())
	assert.Equal(t, 1, srv.Calls("POST /api/projects/:id/conversation"))

	m = submit(m, "/leave")
	assert.Nil(t, m.State().Project)
	assert.Equal(t, conversation.PhaseEmpty, m.State().Phase)

	m = submit(m, "/project nothing")
	assert.Error(t, m.Err())
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t)
	m = submit(m, "/frobnicate")
	assert.ErrorIs(t, m.Err(), errUnknownCommand)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.NoError(t, next.(Model).Err())
}

func TestHelpAndQuit(t *testing.T) {
	m, _ := newTestModel(t)

	m = submit(m, "/help")
	assert.Contains(t, m.View(), "/attach PATH...")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

func TestNarrowLayoutHidesRoster(t *testing.T) {
	m, srv := newTestModel(t)
	srv.SeedChat("u1", "Listed chat", apitest.Turn{User: "q", Assistant: "a"})
	m = submit(m, "/history")
	assert.Contains(t, m.View(), "Listed chat")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	m = next.(Model)
	assert.NotContains(t, m.View(), "Listed chat")
}

func TestStatusShowsPendingMessage(t *testing.T) {
	m, _ := newTestModel(t)
	m.state = conversation.State{
		Loading: true,
		Conversation: &model.Conversation{Messages: []*model.Message{
			model.NewUserMessage("how long is a piece of string\nsecond line", nil),
		}},
	}
	status := m.renderStatus()
	assert.Contains(t, status, "waiting for reply")
	assert.Contains(t, status, "how long is a piece of string")
	assert.NotContains(t, status, "second line")
}
