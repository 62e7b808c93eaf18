// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/apitest"
	"github.com/jeranaias/parley/internal/model"
)

func TestListRoster(t *testing.T) {
	c, srv := newTestClient(t)
	for i := 0; i < 3; i++ {
		srv.SeedChat("u1", "chat", apitest.Turn{User: "q", Assistant: "a"})
	}
	srv.SeedChat("someone-else", "theirs")

	page, err := c.ListRoster(context.Background(), "u1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Chats, 2)

	roster := page.Roster()
	require.Len(t, roster, 2)
	assert.NotEmpty(t, roster[0].ID)
	assert.Equal(t, 1, roster[0].MessageCount)
	assert.False(t, roster[0].CreatedAt.IsZero())

	req := srv.Requests("GET /api/chats")[0]
	assert.Equal(t, map[string]string{"user_id": "u1", "page": "1", "limit": "2"}, req.Query)
}

func TestFetchConversation(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.SeedChat("u1", "Seeded",
		apitest.Turn{User: "hello", Assistant: "hi there"},
		apitest.Turn{User: "draw", Assistant: apitest.ImageURL, ContentType: "image"},
		apitest.Turn{Assistant: "orphan reply"},
	)

	detail, err := c.FetchConversation(context.Background(), id, "u1")
	require.NoError(t, err)
	conv := detail.Conversation("ignored")
	assert.Equal(t, id, conv.ID)
	assert.Equal(t, "Seeded", conv.Title)

	require.Len(t, conv.Messages, 5)
	roles := make([]model.Role, len(conv.Messages))
	for i, m := range conv.Messages {
		roles[i] = m.Role
	}
	assert.Equal(t, []model.Role{
		model.RoleUser, model.RoleAssistant, model.RoleUser, model.RoleAssistant, model.RoleAssistant,
	}, roles)
	assert.Equal(t, apitest.ImageURL, conv.Messages[3].ImageURL)

	_, err = c.FetchConversation(context.Background(), "nope", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordTurnKeys(t *testing.T) {
	var recs []Record
	require.NoError(t, json.Unmarshal([]byte(`[
		{"user_role":"A","order":0},
		{"assistant_role":"B","order":1},
		{"user_message":"C","assistant_message":"D"}
	]`), &recs))
	msgs := model.Flatten(Turns(recs))
	require.Len(t, msgs, 4)
	assert.Equal(t, "A", msgs[0].Content)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "B", msgs[1].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "C", msgs[2].Content)
	assert.Equal(t, "D", msgs[3].Content)
}

func TestRenameDeleteShare(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	id := srv.SeedChat("u1", "Old", apitest.Turn{User: "q", Assistant: "a"})

	require.NoError(t, c.RenameConversation(ctx, id, "New title"))
	chat, _ := srv.Chat(id)
	assert.Equal(t, "New title", chat.Title)

	share, err := c.ShareConversation(ctx, id)
	require.NoError(t, err)
	assert.True(t, share.Success)
	assert.Contains(t, share.ShareURL, "/share/"+share.ShareID)

	anon := New(srv.URL, nil)
	shared, err := anon.FetchSharedConversation(ctx, share.ShareID)
	require.NoError(t, err)
	assert.Equal(t, "New title", shared.Title)
	assert.Len(t, shared.Messages, 1)
	assert.Empty(t, srv.Requests("GET /share/:id")[0].Token)

	res, err := c.DeleteConversation(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ConversationsDeleted)

	_, err = c.DeleteConversation(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = anon.FetchSharedConversation(ctx, share.ShareID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearConversations(t *testing.T) {
	c, srv := newTestClient(t)
	srv.SeedChat("u1", "a")
	srv.SeedChat("u1", "b")
	res, err := c.ClearConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChatsDeleted)
	assert.Equal(t, 0, srv.ChatCount())
}
