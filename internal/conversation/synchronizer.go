// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
)

// DefaultPageSize is the roster page size used after every send.
const DefaultPageSize = 10

// Backend is the part of the API client the Synchronizer calls.
// *api.Client implements it.
type Backend interface {
	Generate(ctx context.Context, modelName, text, userID string, opts api.GenerateOptions) (*api.GenerateResponse, error)
	WebSearch(ctx context.Context, query, modelName, conversationID, userID string) (*api.SearchResponse, error)
	ProjectGenerate(ctx context.Context, projectID, modelName, text, userID string, opts api.ProjectGenerateOptions) (*api.GenerateResponse, error)
	ListRoster(ctx context.Context, userID string, page, limit int) (*api.RosterPage, error)
	FetchConversation(ctx context.Context, id, userID string) (*api.ConversationDetail, error)
	DeleteConversation(ctx context.Context, id string) (*api.DeleteResult, error)
	RenameConversation(ctx context.Context, id, title string) error
	ShareConversation(ctx context.Context, id string) (*api.ShareResult, error)
}

// Deps are the collaborators and settings of a Synchronizer.
type Deps struct {
	Backend Backend

	// Session caches the conversation and user ids. Nil uses a memory store.
	Session session.Store

	Logger *zap.Logger

	// UserID identifies the signed-in user. When empty the cached id is used.
	UserID string

	// Models lists the selectable models; empty allows any.
	Models []string

	// SearchModels lists the models that support web search; empty allows
	// any.
	SearchModels []string

	// DefaultModel is selected initially; the first of Models otherwise.
	DefaultModel string

	// PageSize is the roster page size; DefaultPageSize when zero.
	PageSize int
}

// Synchronizer owns the active conversation, the roster and the cached
// session ids. Create one per sign-in with New and end it with SignOut.
// It is safe for concurrent use.
type Synchronizer struct {
	backend      Backend
	store        session.Store
	log          *zap.Logger
	models       []string
	searchModels []string
	pageSize     int

	sending slot

	mu          sync.Mutex
	conv        *model.Conversation
	roster      model.Roster
	rosterPage  int
	rosterPages int
	sessionID   string
	activeID    string
	userID      string
	model       string
	staged      []model.Attachment
	project     *model.Project
	closed      bool

	// epoch changes whenever the active conversation is replaced, so a
	// reply for the previous one can be recognised.
	epoch uint64

	listenerMu sync.Mutex
	listeners  map[int]func(State)
	nextID     int
}

// New creates a Synchronizer and restores the cached session ids.
func New(ctx context.Context, deps Deps) (*Synchronizer, error) {
	if deps.Backend == nil {
		return nil, errors.New("conversation: backend is required")
	}
	s := &Synchronizer{
		backend:      deps.Backend,
		store:        deps.Session,
		log:          logging.OrNop(deps.Logger).Named("conversation"),
		models:       slices.Clone(deps.Models),
		searchModels: slices.Clone(deps.SearchModels),
		pageSize:     deps.PageSize,
		listeners:    make(map[int]func(State)),
	}
	if s.store == nil {
		s.store = session.NewMemoryStore()
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}

	s.model = deps.DefaultModel
	if s.model == "" && len(s.models) > 0 {
		s.model = s.models[0]
	}

	sessionID, err := s.store.Get(ctx, session.KeyConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	s.sessionID = sessionID

	s.userID = strings.TrimSpace(deps.UserID)
	if s.userID == "" {
		if s.userID, err = s.store.Get(ctx, session.KeyUserID); err != nil {
			return nil, fmt.Errorf("failed to restore user: %w", err)
		}
	} else {
		s.persist(ctx, session.KeyUserID, s.userID)
	}
	return s, nil
}

// =============================================================================
// SEND
// =============================================================================

// Send appends a user message, asks the backend for a reply, and appends
// the reply. It returns ErrBusy without side effects while another Send is
// outstanding. When the backend call fails the user message stays in the
// conversation and the error is returned.
func (s *Synchronizer) Send(ctx context.Context, text string, attachments []model.Attachment, mode model.Mode) (*model.Message, error) {
	if !s.sending.tryAcquire() {
		return nil, ErrBusy
	}
	acquired := true
	defer func() {
		if acquired {
			s.sending.release()
			s.notify()
		}
	}()

	p, err := s.begin(text, attachments, mode)
	if err != nil {
		acquired = false
		s.sending.release()
		return nil, err
	}
	s.notify()

	s.log.Debug("sending message",
		zap.String("mode", mode.String()),
		zap.String("conversation_id", p.knownID),
		zap.Int("attachments", len(attachments)))

	start := time.Now()
	r, err := s.dispatch(ctx, p)
	if err != nil {
		s.log.Warn("send failed",
			zap.String("mode", mode.String()),
			zap.String("conversation_id", p.knownID),
			zap.Error(err))
		return nil, fmt.Errorf("send %s message: %w", mode, err)
	}
	s.log.Debug("reply received",
		zap.String("conversation_id", r.conversationID),
		zap.Duration("duration", time.Since(start)))

	msg, err := s.commit(ctx, p, r)
	if rerr := s.RefreshRoster(ctx, 1); rerr != nil {
		s.log.Warn("roster refresh failed", zap.Error(rerr))
	}
	return msg, err
}

// pending is what phase one hands to the backend call and phase two.
type pending struct {
	epoch     uint64
	knownID   string
	text      string
	mode      model.Mode
	modelName string
	userID    string
	projectID string
	docs      []model.Attachment
}

// reply is the mode-independent form of a backend answer.
type reply struct {
	conversationID string
	text           string
	imageURL       string
	sources        map[string]model.Source
	documentNames  []string
}

// begin validates the message and performs phase one: the conversation is
// created if needed and the user message is appended.
func (s *Synchronizer) begin(text string, attachments []model.Attachment, mode model.Mode) (*pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(text, attachments, mode); err != nil {
		return nil, err
	}

	if s.conv == nil {
		s.conv = model.NewConversation(s.model)
		s.conv.Title = model.DeriveTitle(text)
		if strings.TrimSpace(text) == "" && len(attachments) > 0 {
			s.conv.Title = attachments[0].Name
		}
		if s.project != nil {
			s.conv.ProjectID = s.project.ID
		}
	}

	p := &pending{
		epoch:     s.epoch,
		knownID:   s.conv.ID,
		text:      text,
		mode:      mode,
		modelName: s.model,
		userID:    s.userID,
		docs:      slices.Clone(attachments),
	}
	if p.knownID == "" {
		p.knownID = s.sessionID
	}
	if s.project != nil {
		p.projectID = s.project.ID
	}

	s.conv.Append(model.NewUserMessage(text, model.AttachmentNames(attachments)))
	if s.conv.ID == "" {
		s.roster = s.roster.WithPlaceholder(s.conv.Entry())
	}
	s.staged = nil
	return p, nil
}

func (s *Synchronizer) validateLocked(text string, attachments []model.Attachment, mode model.Mode) error {
	blank := strings.TrimSpace(text) == ""
	switch {
	case s.closed || s.userID == "":
		return ErrSignedOut
	case s.model == "":
		return ErrNoModel
	case blank && len(attachments) == 0:
		return ErrEmptyMessage
	}

	switch mode {
	case model.ModeDocument:
		if len(attachments) == 0 {
			return fmt.Errorf("%w: document mode needs attachments", ErrModeConflict)
		}
	case model.ModeText, model.ModeImage, model.ModeSearch:
		if len(attachments) > 0 {
			return fmt.Errorf("%w: attachments need document mode, not %s", ErrModeConflict, mode)
		}
		if blank {
			return ErrEmptyMessage
		}
	default:
		return fmt.Errorf("%w: unknown mode %s", ErrModeConflict, mode)
	}

	if mode == model.ModeSearch {
		if s.project != nil {
			return fmt.Errorf("%w: not inside a project", ErrSearchUnavailable)
		}
		if !s.searchAllowedLocked(s.model) {
			return fmt.Errorf("%w for %s", ErrSearchUnavailable, s.model)
		}
	}
	return nil
}

// dispatch makes the one backend call for the mode.
func (s *Synchronizer) dispatch(ctx context.Context, p *pending) (*reply, error) {
	if p.mode == model.ModeSearch {
		resp, err := s.backend.WebSearch(ctx, p.text, p.modelName, p.knownID, p.userID)
		if err != nil {
			return nil, err
		}
		return &reply{conversationID: resp.ConversationID, text: resp.Response, sources: resp.Sources}, nil
	}

	var (
		resp *api.GenerateResponse
		err  error
	)
	if p.projectID != "" {
		resp, err = s.backend.ProjectGenerate(ctx, p.projectID, p.modelName, p.text, p.userID, api.ProjectGenerateOptions{
			ConversationID: p.knownID,
			GenerateImage:  p.mode == model.ModeImage,
			Documents:      p.docs,
		})
	} else {
		resp, err = s.backend.Generate(ctx, p.modelName, p.text, p.userID, api.GenerateOptions{
			ConversationID: p.knownID,
			GenerateImage:  p.mode == model.ModeImage,
			Documents:      p.docs,
		})
	}
	if err != nil {
		return nil, err
	}

	r := &reply{conversationID: resp.ConversationID, text: resp.Response, documentNames: resp.DocumentNames}
	if p.mode == model.ModeImage && resp.IsImage() {
		r.imageURL = resp.ImageURL
	}
	return r, nil
}

// commit is phase two: adopt the id, reconcile the roster and append the
// assistant message, all in one critical section.
func (s *Synchronizer) commit(ctx context.Context, p *pending, r *reply) (*model.Message, error) {
	s.mu.Lock()
	if s.epoch != p.epoch || s.conv == nil {
		s.mu.Unlock()
		s.log.Info("discarding reply for a replaced conversation",
			zap.String("conversation_id", r.conversationID))
		return nil, ErrStaleResponse
	}

	adopted := ""
	if p.knownID == "" && r.conversationID != "" {
		s.sessionID = r.conversationID
		s.activeID = r.conversationID
		adopted = r.conversationID
	}
	if s.conv.ID == "" {
		if p.knownID != "" {
			s.conv.ID = p.knownID
		} else {
			s.conv.ID = r.conversationID
		}
		if s.conv.ID != "" {
			s.activeID = s.conv.ID
		}
	}

	var msg *model.Message
	switch {
	case r.imageURL != "":
		msg = model.NewImageMessage(r.imageURL)
	case p.mode == model.ModeSearch:
		msg = model.NewSearchMessage(r.text, r.sources)
	default:
		msg = model.NewAssistantMessage(r.text)
		if len(r.documentNames) > 0 {
			msg.Attachments = slices.Clone(r.documentNames)
		}
	}
	s.conv.Append(msg)
	s.roster = s.roster.Reconcile(s.conv.Entry())
	out := msg.Clone()
	s.mu.Unlock()

	if adopted != "" {
		s.persist(ctx, session.KeyConversationID, adopted)
	}
	return out, nil
}

// =============================================================================
// STATE
// =============================================================================

// StartNew leaves the active conversation. Nothing is sent to the backend.
// The project scope, if any, is kept.
func (s *Synchronizer) StartNew(ctx context.Context) {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	if err := s.store.Delete(ctx, session.KeyConversationID); err != nil && !errors.Is(err, session.ErrClosed) {
		s.log.Warn("failed to clear cached conversation", zap.Error(err))
	}
	s.notify()
}

func (s *Synchronizer) resetLocked() {
	s.conv = nil
	s.staged = nil
	s.sessionID = ""
	s.activeID = ""
	s.roster = s.roster.WithoutPlaceholder()
	s.epoch++
}

// SignOut forgets everything, clears the session store and disables the
// Synchronizer.
func (s *Synchronizer) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.resetLocked()
	s.roster = nil
	s.rosterPage, s.rosterPages = 0, 0
	s.userID = ""
	s.project = nil
	s.closed = true
	s.mu.Unlock()

	err := s.store.Clear(ctx)
	s.notify()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Phase returns the current lifecycle phase.
func (s *Synchronizer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return phaseOf(s.conv)
}

// Loading reports whether a Send is outstanding.
func (s *Synchronizer) Loading() bool {
	return s.sending.busy()
}

// SessionID returns the cached conversation id.
func (s *Synchronizer) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// UserID returns the signed-in user id.
func (s *Synchronizer) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Snapshot returns a deep copy of the observable state.
func (s *Synchronizer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() State {
	st := State{
		Phase:        phaseOf(s.conv),
		Conversation: s.conv.Clone(),
		Roster:       s.roster.Clone(),
		RosterPage:   s.rosterPage,
		RosterPages:  s.rosterPages,
		SessionID:    s.sessionID,
		ActiveID:     s.activeID,
		UserID:       s.userID,
		Model:        s.model,
		Staged:       slices.Clone(s.staged),
		Loading:      s.sending.busy(),
		SignedOut:    s.closed,
	}
	if s.project != nil {
		p := *s.project
		st.Project = &p
	}
	return st
}

// =============================================================================
// MODELS
// =============================================================================

// Models returns the selectable models.
func (s *Synchronizer) Models() []string {
	return slices.Clone(s.models)
}

// Model returns the selected model.
func (s *Synchronizer) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SelectModel selects the model used by later sends.
func (s *Synchronizer) SelectModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoModel
	}
	if len(s.models) > 0 && !slices.Contains(s.models, name) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	s.mu.Lock()
	s.model = name
	s.mu.Unlock()
	s.notify()
	return nil
}

// SearchAvailable reports whether web search can be used right now.
func (s *Synchronizer) SearchAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project == nil && s.searchAllowedLocked(s.model)
}

func (s *Synchronizer) searchAllowedLocked(name string) bool {
	return len(s.searchModels) == 0 || slices.Contains(s.searchModels, name)
}

// =============================================================================
// STAGED ATTACHMENTS
// =============================================================================

// Stage adds attachments for the next send. A file with the same name
// replaces the earlier one.
func (s *Synchronizer) Stage(atts ...model.Attachment) {
	s.mu.Lock()
	for _, a := range atts {
		s.staged = slices.DeleteFunc(s.staged, func(x model.Attachment) bool { return x.Name == a.Name })
		s.staged = append(s.staged, a)
	}
	s.mu.Unlock()
	s.notify()
}

// Unstage removes the staged attachment called name.
func (s *Synchronizer) Unstage(name string) bool {
	s.mu.Lock()
	n := len(s.staged)
	s.staged = slices.DeleteFunc(s.staged, func(x model.Attachment) bool { return x.Name == name })
	removed := len(s.staged) != n
	s.mu.Unlock()
	if removed {
		s.notify()
	}
	return removed
}

// Staged returns the attachments waiting for the next send.
func (s *Synchronizer) Staged() []model.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.staged)
}

// =============================================================================
// NOTIFICATION
// =============================================================================

// Subscribe registers fn to receive a snapshot after every change. fn runs
// on the goroutine that made the change and must not block. The returned
// func unsubscribes.
func (s *Synchronizer) Subscribe(fn func(State)) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Synchronizer) notify() {
	s.listenerMu.Lock()
	if len(s.listeners) == 0 {
		s.listenerMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	st := s.Snapshot()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *Synchronizer) persist(ctx context.Context, key session.Key, value string) {
	if err := s.store.Set(ctx, key, value); err != nil {
		s.log.Warn("failed to cache session value", zap.String("key", string(key)), zap.Error(err))
	}
}
