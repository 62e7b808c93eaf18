// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/apitest"
	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/model"
)

type stubFetcher struct {
	shared *api.SharedConversation
	err    error
	asked  []string
}

func (s *stubFetcher) FetchSharedConversation(_ context.Context, id string) (*api.SharedConversation, error) {
	s.asked = append(s.asked, id)
	return s.shared, s.err
}

func decodeShared(t *testing.T, raw string) *api.SharedConversation {
	t.Helper()
	var s api.SharedConversation
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return &s
}

func TestFlattenRecords(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		roles []model.Role
		texts []string
	}{
		{
			name:  "split turns",
			raw:   `{"messages":[{"user_role":"A"},{"assistant_role":"B"}]}`,
			roles: []model.Role{model.RoleUser, model.RoleAssistant},
			texts: []string{"A", "B"},
		},
		{
			name:  "full turns in order",
			raw:   `{"messages":[{"user_role":"1","assistant_role":"2"},{"user_role":"3","assistant_role":"4"}]}`,
			roles: []model.Role{model.RoleUser, model.RoleAssistant, model.RoleUser, model.RoleAssistant},
			texts: []string{"1", "2", "3", "4"},
		},
		{
			name:  "absent turns dropped",
			raw:   `{"messages":[{},{"user_role":""},{"assistant_role":"only"}]}`,
			roles: []model.Role{model.RoleAssistant},
			texts: []string{"only"},
		},
		{
			name: "no messages",
			raw:  `{"title":"Empty"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := FromShared("s1", decodeShared(t, tc.raw))
			require.Len(t, v.Messages, len(tc.roles))
			for i, m := range v.Messages {
				assert.Equal(t, tc.roles[i], m.Role)
				assert.Equal(t, tc.texts[i], m.Content)
			}
		})
	}
}

func TestFromSharedMetadata(t *testing.T) {
	v := FromShared("s1", decodeShared(t, `{
		"title": "",
		"model_name": "gpt-4o",
		"created_at": "2024-05-01T10:00:00.000000",
		"shared_at": "2024-05-02T10:00:00.000000",
		"document_names": ["a.pdf"],
		"messages": [{"user_role":"draw","assistant_role":"https://img.test/x.png","content_type":"image"}]
	}`))
	assert.Equal(t, "s1", v.ID)
	assert.Equal(t, model.DefaultTitle, v.Title)
	assert.Equal(t, "gpt-4o", v.Model)
	assert.Equal(t, 1, v.CreatedAt.Day())
	assert.Equal(t, 2, v.SharedAt.Day())
	assert.Equal(t, []string{"a.pdf"}, v.DocumentNames)
	require.Len(t, v.Messages, 2)
	assert.Empty(t, v.Messages[1].Content)
	assert.Equal(t, "https://img.test/x.png", v.Messages[1].ImageURL)
}

func TestLoad(t *testing.T) {
	f := &stubFetcher{shared: &api.SharedConversation{Title: "T", Messages: []api.Record{{UserRole: "hi"}}}}
	v, err := New(f, nil).Load(context.Background(), "  s9 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"s9"}, f.asked)
	assert.Equal(t, "s9", v.ID)
	assert.Len(t, v.Messages, 1)

	_, err = New(f, nil).Load(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyShareID)

	f.err = api.ErrNotFound
	_, err = New(f, nil).Load(context.Background(), "gone")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestLoadFromBackendWithoutToken(t *testing.T) {
	srv := apitest.New(t)
	id := srv.SeedChat("u1", "Shared one", apitest.Turn{User: "A", Assistant: "B"})
	owner := api.New(srv.URL, auth.NewStaticSource("tok"))
	share, err := owner.ShareConversation(context.Background(), id)
	require.NoError(t, err)

	v, err := New(api.New(srv.URL, nil), nil).Load(context.Background(), share.ShareID)
	require.NoError(t, err)
	assert.Equal(t, "Shared one", v.Title)
	require.Len(t, v.Messages, 2)
	assert.Equal(t, "A", v.Messages[0].Content)
	assert.Equal(t, "B", v.Messages[1].Content)
}

func TestFromConversation(t *testing.T) {
	c := model.NewConversation("gpt-4o")
	c.ID = "c1"
	c.Title = "Local"
	c.Append(model.NewUserMessage("read these", []string{"a.pdf", "b.csv"}))
	c.Append(model.NewAssistantMessage("done"))
	c.Append(model.NewUserMessage("again", []string{"a.pdf"}))

	v := FromConversation(c)
	assert.Equal(t, "c1", v.ID)
	assert.Equal(t, []string{"a.pdf", "b.csv"}, v.DocumentNames)
	require.Len(t, v.Messages, 3)

	v.Messages[0].Content = "changed"
	assert.Equal(t, "read these", c.Messages[0].Content, "view holds a copy")
}

func TestRender(t *testing.T) {
	search := model.NewSearchMessage("Go 1.24 is out [1]", map[string]model.Source{
		"1":  {Title: "Second", URL: "https://b.test"},
		"0":  {Title: "First", URL: "https://a.test"},
		"10": {Title: "Last", URL: "https://z.test"},
	})
	v := &View{
		Title:     "Release notes",
		Model:     "gpt-4o",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local),
		Messages: []*model.Message{
			model.NewUserMessage("what is new in "+strings.Repeat("go ", 40), []string{"notes.md"}),
			model.NewImageMessage("https://img.test/x.png"),
			search,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v, 40))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Release notes\n=============\n"))
	assert.Contains(t, out, "model gpt-4o |")
	assert.Contains(t, out, "created 2024-05-01")
	assert.Contains(t, out, "3 messages")
	assert.Contains(t, out, "You (")
	assert.Contains(t, out, "  [attached: notes.md]")
	assert.Contains(t, out, "  [image] https://img.test/x.png")
	first := strings.Index(out, "[0] First")
	second := strings.Index(out, "[1] Second")
	last := strings.Index(out, "[10] Last")
	assert.True(t, first >= 0 && first < second && second < last, "sources in numeric order")

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 40, "line %q", line)
	}
}

func TestRenderUnderlinesWideTitles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &View{Title: "会議メモ"}, 40))
	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, strings.Repeat("=", 8), lines[1])
}
