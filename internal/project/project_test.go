// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package project

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/apitest"
	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/auth"
)

func newTestManager(t *testing.T) (*Manager, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	client := api.New(srv.URL, auth.NewStaticSource("tok"))
	return NewManager(client, "u1", attach.NewPolicy(1024, nil), nil), srv
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCreateAndList(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	p, err := m.Create(ctx, "  Thesis ", "Write the thesis", "Be brief")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Thesis", p.Name)
	assert.Equal(t, "Be brief", p.Instructions)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	tests := []struct {
		name, pname, goal string
		want              error
	}{
		{"no name", " ", "goal", ErrNameRequired},
		{"no goal", "name", "", ErrGoalRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Create(ctx, tc.pname, tc.goal, "")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDetails(t *testing.T) {
	m, srv := newTestManager(t)
	ctx := context.Background()
	id := srv.SeedProject("u1", "Research", "Find things")

	d, err := m.Details(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Research", d.Project.Name)
	assert.Empty(t, d.Documents)
	assert.Nil(t, d.Latest)

	client := api.New(srv.URL, auth.NewStaticSource("tok"))
	resp, err := client.ProjectGenerate(ctx, id, "gpt-4o", "question", "u1", api.ProjectGenerateOptions{})
	require.NoError(t, err)

	d, err = m.Details(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, d.Latest)
	assert.Equal(t, resp.ConversationID, d.Latest.ID)
	assert.Equal(t, id, d.Latest.ProjectID)
	require.Len(t, d.Latest.Messages, 2)
	assert.Equal(t, "question", d.Latest.Messages[0].Content)
	assert.Equal(t, []string{resp.ConversationID}, d.Project.ConversationIDs)
	require.Len(t, d.Conversations, 1)

	_, err = m.Details(ctx, "nope")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestUploadDocuments(t *testing.T) {
	m, srv := newTestManager(t)
	ctx := context.Background()
	id := srv.SeedProject("u1", "Docs", "Hold docs")
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.md", "# beta")

	docs, err := m.UploadDocuments(ctx, id, []string{a, b}, []string{"", "Beta notes"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Name)
	assert.Equal(t, "Beta notes", docs[1].Name)

	stored, _ := srv.Project(id)
	assert.Len(t, stored.Documents, 2)

	d, err := m.Details(ctx, id)
	require.NoError(t, err)
	assert.Len(t, d.Project.Documents, 2)
}

func TestUploadValidatesFirst(t *testing.T) {
	m, srv := newTestManager(t)
	ctx := context.Background()
	id := srv.SeedProject("u1", "Docs", "Hold docs")
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.txt", "fine")
	bad := writeFile(t, dir, "tool.exe", "MZ")

	_, err := m.UploadDocuments(ctx, id, []string{ok, bad}, nil)
	assert.ErrorIs(t, err, attach.ErrUnsupportedType)
	assert.Zero(t, srv.Calls("POST /api/projects/:id/documents"), "nothing uploaded")

	_, err = m.UploadDocuments(ctx, id, nil, nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
	_, err = m.UploadDocuments(ctx, id, []string{ok}, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrNameCount)
}

func TestUploadStopsOnFailure(t *testing.T) {
	m, srv := newTestManager(t)
	ctx := context.Background()
	id := srv.SeedProject("u1", "Docs", "Hold docs")
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "one.txt", "1"), writeFile(t, dir, "two.txt", "2")}

	srv.Fail("POST /api/projects/:id/documents", http.StatusInternalServerError, "disk full", 1)
	docs, err := m.UploadDocuments(ctx, id, paths, nil)
	assert.ErrorIs(t, err, api.ErrServer)
	assert.Empty(t, docs)
}

func TestUpdateInstructions(t *testing.T) {
	m, srv := newTestManager(t)
	ctx := context.Background()
	id := srv.SeedProject("u1", "P", "G")

	require.NoError(t, m.UpdateInstructions(ctx, id, "  Cite sources "))
	stored, _ := srv.Project(id)
	assert.Equal(t, "Cite sources", stored.Instructions)

	assert.ErrorIs(t, m.UpdateInstructions(ctx, "missing", "x"), api.ErrNotFound)
}
