// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package viewer loads and renders read-only conversations: public share
// links and conversations opened for display. Nothing here mutates a
// conversation.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
)

// ErrEmptyShareID is returned by Load for a blank id.
var ErrEmptyShareID = errors.New("share id is empty")

// Fetcher loads a public conversation snapshot. *api.Client implements it.
type Fetcher interface {
	FetchSharedConversation(ctx context.Context, shareID string) (*api.SharedConversation, error)
}

// View is an immutable conversation ready for display.
type View struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Model         string           `json:"model,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	SharedAt      time.Time        `json:"shared_at,omitempty"`
	DocumentNames []string         `json:"document_names,omitempty"`
	Messages      []*model.Message `json:"messages"`
}

// Viewer fetches shared conversations.
type Viewer struct {
	fetcher Fetcher
	log     *zap.Logger
}

// New creates a Viewer.
func New(f Fetcher, log *zap.Logger) *Viewer {
	return &Viewer{fetcher: f, log: logging.OrNop(log).Named("viewer")}
}

// Load fetches the snapshot behind shareID.
func (v *Viewer) Load(ctx context.Context, shareID string) (*View, error) {
	shareID = strings.TrimSpace(shareID)
	if shareID == "" {
		return nil, ErrEmptyShareID
	}
	shared, err := v.fetcher.FetchSharedConversation(ctx, shareID)
	if err != nil {
		v.log.Warn("failed to load shared conversation", zap.String("share_id", shareID), zap.Error(err))
		return nil, fmt.Errorf("load shared conversation %s: %w", shareID, err)
	}
	view := FromShared(shareID, shared)
	v.log.Debug("loaded shared conversation", zap.String("share_id", shareID), zap.Int("messages", len(view.Messages)))
	return view, nil
}

// FromShared converts a snapshot, flattening its records in order.
func FromShared(id string, s *api.SharedConversation) *View {
	title := s.Title
	if title == "" {
		title = model.DefaultTitle
	}
	return &View{
		ID:            id,
		Title:         title,
		Model:         s.ModelName,
		CreatedAt:     s.CreatedAt.Time,
		SharedAt:      s.SharedAt.Time,
		DocumentNames: s.DocumentNames,
		Messages:      model.Flatten(api.Turns(s.Messages)),
	}
}

// FromConversation wraps a loaded conversation for display.
func FromConversation(c *model.Conversation) *View {
	c = c.Clone()
	var docs []string
	seen := map[string]bool{}
	for _, m := range c.Messages {
		if m.Role != model.RoleUser {
			continue
		}
		for _, name := range m.Attachments {
			if !seen[name] {
				seen[name] = true
				docs = append(docs, name)
			}
		}
	}
	return &View{
		ID:            c.ID,
		Title:         c.Title,
		Model:         c.Model,
		CreatedAt:     c.CreatedAt,
		DocumentNames: docs,
		Messages:      c.Messages,
	}
}
