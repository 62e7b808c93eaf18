// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/model"
)

const testImageURL = "https://images.example.test/cat.png"

type generateCall struct {
	projectID string
	model     string
	text      string
	opts      api.GenerateOptions
}

type searchCall struct {
	query, model, conversationID string
}

// fakeBackend answers every call from memory.
type fakeBackend struct {
	mu sync.Mutex

	seq    int
	omitID bool
	err    error

	// block, when set, holds Generate until it is closed; started receives
	// once per call.
	block   chan struct{}
	started chan struct{}

	generates   []generateCall
	searches    []searchCall
	rosterCalls int
	chats       []api.ChatSummary
	duplicate   bool
	details     map[string]*api.ConversationDetail
	deleteRes   *api.DeleteResult
	deleted     []string
	renamed     map[string]string
	share       *api.ShareResult
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		details: make(map[string]*api.ConversationDetail),
		renamed: make(map[string]string),
	}
}

func (f *fakeBackend) wait(ctx context.Context) error {
	f.mu.Lock()
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) answer(call generateCall) (*api.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates = append(f.generates, call)
	if f.err != nil {
		return nil, f.err
	}

	id := call.opts.ConversationID
	if id == "" {
		f.seq++
		id = fmt.Sprintf("conv-%d", f.seq)
		f.chats = append([]api.ChatSummary{{
			ID:           id,
			Title:        "Remote " + id,
			CreatedAt:    api.Timestamp{Time: time.Now()},
			MessageCount: 1,
		}}, f.chats...)
	}

	resp := &api.GenerateResponse{ConversationID: id, Response: "reply: " + call.text, ResponseType: "text"}
	if f.omitID {
		resp.ConversationID = ""
	}
	if call.opts.GenerateImage {
		resp.Response = ""
		resp.ResponseType = api.ResponseTypeImage
		resp.ImageURL = testImageURL
	}
	for _, d := range call.opts.Documents {
		resp.DocumentNames = append(resp.DocumentNames, "processed-"+d.Name)
	}
	return resp, nil
}

func (f *fakeBackend) Generate(ctx context.Context, modelName, text, _ string, opts api.GenerateOptions) (*api.GenerateResponse, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.answer(generateCall{model: modelName, text: text, opts: opts})
}

func (f *fakeBackend) ProjectGenerate(ctx context.Context, projectID, modelName, text, _ string, opts api.ProjectGenerateOptions) (*api.GenerateResponse, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.answer(generateCall{
		projectID: projectID,
		model:     modelName,
		text:      text,
		opts: api.GenerateOptions{
			ConversationID: opts.ConversationID,
			GenerateImage:  opts.GenerateImage,
			Documents:      opts.Documents,
		},
	})
}

func (f *fakeBackend) WebSearch(ctx context.Context, query, modelName, conversationID, _ string) (*api.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, searchCall{query, modelName, conversationID})
	if f.err != nil {
		return nil, f.err
	}
	id := conversationID
	if id == "" {
		f.seq++
		id = fmt.Sprintf("conv-%d", f.seq)
		f.chats = append([]api.ChatSummary{{ID: id, Title: query}}, f.chats...)
	}
	return &api.SearchResponse{
		ConversationID: id,
		Response:       "found [1]",
		Sources: map[string]model.Source{
			"0": {Title: "Go", URL: "https://go.dev", Snippet: "The Go language"},
		},
	}, nil
}

func (f *fakeBackend) ListRoster(_ context.Context, _ string, page, limit int) (*api.RosterPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	chats := append([]api.ChatSummary(nil), f.chats...)
	if f.duplicate && len(chats) > 0 {
		chats = append(chats, chats[0], api.ChatSummary{Title: "no id"})
	}
	if len(chats) > limit {
		chats = chats[:limit]
	}
	return &api.RosterPage{Chats: chats, Total: len(f.chats), Page: page, Limit: limit, Pages: 1}, nil
}

func (f *fakeBackend) FetchConversation(_ context.Context, id, _ string) (*api.ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return d, nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) (*api.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteRes != nil {
		return f.deleteRes, nil
	}
	f.deleted = append(f.deleted, id)
	kept := f.chats[:0]
	for _, c := range f.chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.chats = kept
	return &api.DeleteResult{Success: true, ChatID: id}, nil
}

func (f *fakeBackend) RenameConversation(_ context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.renamed[id] = title
	for i := range f.chats {
		if f.chats[i].ID == id {
			f.chats[i].Title = title
		}
	}
	return nil
}

func (f *fakeBackend) ShareConversation(_ context.Context, id string) (*api.ShareResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.share != nil {
		return f.share, nil
	}
	return &api.ShareResult{Success: true, ShareID: "s-" + id, ShareURL: "https://chat.example.test/share/s-" + id}, nil
}

func (f *fakeBackend) generateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generates)
}

func (f *fakeBackend) lastGenerate() generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generates[len(f.generates)-1]
}
