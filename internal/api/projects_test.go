// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/model"
)

func TestProjectLifecycle(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateProject(ctx, "u1", "Thesis", "Help me write", "Be concise")
	require.NoError(t, err)
	p := created.Project()
	require.NotEmpty(t, p.ID, "create replies with id rather than _id")
	assert.Equal(t, "Thesis", p.Name)

	list, err := c.ListProjects(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].Project().ID)
	assert.Equal(t, "Be concise", list[0].Instructions)

	doc, err := c.UploadProjectDocument(ctx, p.ID, "u1", "notes.txt", model.Attachment{
		Name: "notes-local.txt", ContentType: "text/plain", Data: []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Document().Name)
	req := srv.Requests("POST /api/projects/:id/documents")[0]
	assert.Equal(t, []string{"notes-local.txt"}, req.Files)
	assert.Equal(t, "notes.txt", req.Form["document_name"])

	require.NoError(t, c.UpdateProjectInstructions(ctx, p.ID, "u1", "Cite sources"))
	stored, _ := srv.Project(p.ID)
	assert.Equal(t, "Cite sources", stored.Instructions)

	_, err = c.ProjectGenerate(ctx, p.ID, "gpt-4o", "first question", "u1", ProjectGenerateOptions{})
	require.NoError(t, err)

	detail, err := c.FetchProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	require.Len(t, detail.Documents, 1)
	assert.Equal(t, "notes.txt", detail.Documents[0].Document().Name)
	require.NotNil(t, detail.Chat)
	assert.Equal(t, p.ID, detail.Chat.ProjectID)
	msgs := model.Flatten(Turns(detail.Messages))
	require.Len(t, msgs, 2)
	assert.Equal(t, "first question", msgs[0].Content)

	_, err = c.CreateProject(ctx, "u1", "", "", "")
	assert.ErrorIs(t, err, ErrBadRequest)
}
