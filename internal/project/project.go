// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package project manages project knowledge bases: named collections of
// documents and instructions that answer conversations started inside
// them.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
)

var (
	ErrNameRequired = errors.New("project name is required")
	ErrGoalRequired = errors.New("project goal is required")
	ErrNoDocuments  = errors.New("no documents given")
	ErrNameCount    = errors.New("document names do not match files")
)

// Backend is the part of the API client used for projects. *api.Client
// implements it.
type Backend interface {
	ListProjects(ctx context.Context, userID string) ([]api.ProjectSummary, error)
	CreateProject(ctx context.Context, userID, name, goal, instructions string) (*api.ProjectSummary, error)
	FetchProject(ctx context.Context, id, userID string) (*api.ProjectDetail, error)
	UpdateProjectInstructions(ctx context.Context, id, userID, instructions string) error
	UploadProjectDocument(ctx context.Context, id, userID, name string, doc model.Attachment) (*api.DocumentInfo, error)
}

// Details is a project with its documents and conversations.
type Details struct {
	Project       model.Project
	Documents     []model.Document
	Conversations model.Roster

	// Latest is the most recent conversation with its messages, or nil.
	Latest *model.Conversation
}

// Manager performs project operations for one user.
type Manager struct {
	backend Backend
	userID  string
	policy  attach.Policy
	log     *zap.Logger
}

// NewManager creates a Manager.
func NewManager(b Backend, userID string, policy attach.Policy, log *zap.Logger) *Manager {
	return &Manager{
		backend: b,
		userID:  userID,
		policy:  policy,
		log:     logging.OrNop(log).Named("project"),
	}
}

// List returns the user's projects.
func (m *Manager) List(ctx context.Context) ([]model.Project, error) {
	summaries, err := m.backend.ListProjects(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]model.Project, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, s.Project())
	}
	return out, nil
}

// Create makes a project. name and goal are required.
func (m *Manager) Create(ctx context.Context, name, goal, instructions string) (model.Project, error) {
	name, goal = strings.TrimSpace(name), strings.TrimSpace(goal)
	switch {
	case name == "":
		return model.Project{}, ErrNameRequired
	case goal == "":
		return model.Project{}, ErrGoalRequired
	}
	s, err := m.backend.CreateProject(ctx, m.userID, name, goal, strings.TrimSpace(instructions))
	if err != nil {
		return model.Project{}, fmt.Errorf("create project %q: %w", name, err)
	}
	p := s.Project()
	if p.Instructions == "" {
		p.Instructions = strings.TrimSpace(instructions)
	}
	m.log.Info("project created", zap.String("project_id", p.ID))
	return p, nil
}

// Details fetches project id with its documents and conversations.
func (m *Manager) Details(ctx context.Context, id string) (*Details, error) {
	d, err := m.backend.FetchProject(ctx, id, m.userID)
	if err != nil {
		return nil, fmt.Errorf("fetch project %s: %w", id, err)
	}
	if d.Project == nil {
		return nil, fmt.Errorf("fetch project %s: %w", id, api.ErrMalformedResponse)
	}

	out := &Details{Project: d.Project.Project()}
	if out.Project.ID == "" {
		out.Project.ID = id
	}
	for _, doc := range d.Documents {
		out.Documents = append(out.Documents, doc.Document())
	}
	out.Project.Documents = out.Documents
	for _, c := range d.Conversations {
		if e := c.Entry(); !e.Placeholder() {
			out.Conversations = append(out.Conversations, e)
			out.Project.ConversationIDs = append(out.Project.ConversationIDs, e.ID)
		}
	}
	out.Conversations = out.Conversations.Dedupe()

	if d.Chat != nil && d.Chat.Identifier() != "" {
		out.Latest = &model.Conversation{
			ID:        d.Chat.Identifier(),
			Title:     d.Chat.Title,
			CreatedAt: d.Chat.CreatedAt.Time,
			Model:     d.Chat.ModelName,
			ProjectID: out.Project.ID,
			Messages:  model.Flatten(api.Turns(d.Messages)),
		}
	}
	return out, nil
}

// UploadDocuments validates every file, then uploads them one by one.
// names, when given, must match paths one to one and override the stored
// document names. On an upload failure the documents stored so far are
// returned with the error.
func (m *Manager) UploadDocuments(ctx context.Context, id string, paths, names []string) ([]model.Document, error) {
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}
	if len(names) > 0 && len(names) != len(paths) {
		return nil, fmt.Errorf("%w: %d names for %d files", ErrNameCount, len(names), len(paths))
	}
	files, err := m.policy.LoadAll(paths)
	if err != nil {
		return nil, err
	}

	var out []model.Document
	for i, f := range files {
		name := f.Name
		if len(names) > 0 && strings.TrimSpace(names[i]) != "" {
			name = strings.TrimSpace(names[i])
		}
		info, err := m.backend.UploadProjectDocument(ctx, id, m.userID, name, f)
		if err != nil {
			m.log.Warn("document upload failed",
				zap.String("project_id", id),
				zap.String("document", name),
				zap.Error(err))
			return out, fmt.Errorf("upload %s: %w", name, err)
		}
		out = append(out, info.Document())
	}
	m.log.Info("documents uploaded", zap.String("project_id", id), zap.Int("count", len(out)))
	return out, nil
}

// UpdateInstructions replaces the project's instructions.
func (m *Manager) UpdateInstructions(ctx context.Context, id, text string) error {
	if err := m.backend.UpdateProjectInstructions(ctx, id, m.userID, strings.TrimSpace(text)); err != nil {
		return fmt.Errorf("update instructions of %s: %w", id, err)
	}
	return nil
}
