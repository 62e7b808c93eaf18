// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
)

// RefreshRoster replaces the roster with one page from the backend. The
// unsaved placeholder and the active conversation stay listed even when
// the page does not include them.
func (s *Synchronizer) RefreshRoster(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	userID, closed := s.userID, s.closed
	s.mu.Unlock()
	if closed || userID == "" {
		return ErrSignedOut
	}

	resp, err := s.backend.ListRoster(ctx, userID, page, s.pageSize)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	remote := resp.Roster().Dedupe()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSignedOut
	}
	switch phaseOf(s.conv) {
	case PhasePending:
		remote = remote.WithPlaceholder(s.conv.Entry())
	case PhasePersisted:
		if _, ok := remote.Find(s.conv.ID); !ok {
			remote = append(model.Roster{s.conv.Entry()}, remote...)
		}
	}
	s.roster = remote
	s.rosterPage = resp.Page
	if s.rosterPage == 0 {
		s.rosterPage = page
	}
	s.rosterPages = resp.Pages
	s.mu.Unlock()

	s.notify()
	return nil
}

// Roster returns a copy of the roster.
func (s *Synchronizer) Roster() model.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Clone()
}

// Open fetches conversation id and makes it active. Its id becomes the
// cached session id.
func (s *Synchronizer) Open(ctx context.Context, id string) (*model.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("open conversation: %w", ErrEmptyID)
	}
	s.mu.Lock()
	userID, closed := s.userID, s.closed
	s.mu.Unlock()
	if closed || userID == "" {
		return nil, ErrSignedOut
	}

	detail, err := s.backend.FetchConversation(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("open conversation %s: %w", id, err)
	}
	conv := detail.Conversation(id)

	s.mu.Lock()
	s.conv = conv
	s.staged = nil
	s.sessionID = conv.ID
	s.activeID = conv.ID
	s.epoch++
	if s.project != nil && conv.ProjectID == "" {
		conv.ProjectID = s.project.ID
	}
	s.roster = s.roster.WithoutPlaceholder().Reconcile(conv.Entry())
	out := conv.Clone()
	s.mu.Unlock()

	s.persist(ctx, session.KeyConversationID, conv.ID)
	s.log.Debug("opened conversation", zap.String("conversation_id", conv.ID), zap.Int("messages", len(conv.Messages)))
	s.notify()
	return out, nil
}

// Delete removes conversation id from the backend and the roster. Deleting
// the active conversation starts a new one.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("delete conversation: %w", ErrEmptyID)
	}
	if s.isClosed() {
		return ErrSignedOut
	}

	res, err := s.backend.DeleteConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "backend refused"
		}
		return fmt.Errorf("%w: %s", ErrDeleteRejected, msg)
	}

	s.mu.Lock()
	s.roster = s.roster.Without(id)
	active := (s.conv != nil && s.conv.ID == id) || s.sessionID == id
	s.mu.Unlock()

	if active {
		s.StartNew(ctx)
		return nil
	}
	s.notify()
	return nil
}

// Rename sets the title of conversation id.
func (s *Synchronizer) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if s.isClosed() {
		return ErrSignedOut
	}
	if err := s.backend.RenameConversation(ctx, id, title); err != nil {
		return fmt.Errorf("rename conversation %s: %w", id, err)
	}

	s.mu.Lock()
	s.roster = s.roster.Renamed(id, title)
	if s.conv != nil && s.conv.ID == id {
		s.conv.Title = title
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Share requests a public link for conversation id.
func (s *Synchronizer) Share(ctx context.Context, id string) (string, error) {
	if s.isClosed() {
		return "", ErrSignedOut
	}
	res, err := s.backend.ShareConversation(ctx, id)
	if err != nil {
		return "", fmt.Errorf("share conversation %s: %w", id, err)
	}
	if res.ShareURL != "" {
		return res.ShareURL, nil
	}
	if res.ShareID == "" {
		return "", fmt.Errorf("share conversation %s: no share id returned", id)
	}
	return "/share/" + res.ShareID, nil
}

// =============================================================================
// PROJECT SCOPE
// =============================================================================

// EnterProject starts a new conversation inside project p. Later sends go
// to the project's knowledge base.
func (s *Synchronizer) EnterProject(ctx context.Context, p model.Project) {
	s.mu.Lock()
	s.project = &p
	s.mu.Unlock()
	s.StartNew(ctx)
}

// LeaveProject starts a new conversation outside any project.
func (s *Synchronizer) LeaveProject(ctx context.Context) {
	s.mu.Lock()
	s.project = nil
	s.mu.Unlock()
	s.StartNew(ctx)
}

// Project returns the current project scope, or nil.
func (s *Synchronizer) Project() *model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	p := *s.project
	return &p
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
