// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"

	"github.com/jeranaias/parley/internal/model"
)

var (
	// ErrBusy is returned by Send while another Send is outstanding.
	ErrBusy = errors.New("a message is already being sent")

	// ErrNoModel means no model is selected.
	ErrNoModel = errors.New("no model selected")

	// ErrUnknownModel means the model is not in the configured list.
	ErrUnknownModel = errors.New("unknown model")

	// ErrEmptyMessage means the message has neither text nor attachments.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrModeConflict means the mode does not fit the message, such as
	// attachments outside document mode.
	ErrModeConflict = errors.New("mode does not match message")

	// ErrSearchUnavailable means web search is not offered for the model
	// or the current scope.
	ErrSearchUnavailable = errors.New("web search is not available")

	// ErrSignedOut is returned after SignOut or without a user id.
	ErrSignedOut = errors.New("signed out")

	// ErrStaleResponse means the conversation changed while the reply was
	// in flight; the reply was not applied.
	ErrStaleResponse = errors.New("conversation changed before the reply arrived")

	// ErrDeleteRejected means the backend answered a delete with
	// success=false.
	ErrDeleteRejected = errors.New("delete rejected")

	// ErrEmptyTitle is returned by Rename for a blank title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrEmptyID is returned for a blank conversation id.
	ErrEmptyID = errors.New("conversation id is empty")
)

// Phase is the lifecycle position of the active conversation.
type Phase int

const (
	// PhaseEmpty means no conversation is active.
	PhaseEmpty Phase = iota
	// PhasePending means a conversation exists locally without an id.
	PhasePending
	// PhasePersisted means the backend assigned the conversation an id.
	PhasePersisted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhasePending:
		return "pending"
	case PhasePersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

func phaseOf(c *model.Conversation) Phase {
	switch {
	case c == nil:
		return PhaseEmpty
	case c.ID == "":
		return PhasePending
	default:
		return PhasePersisted
	}
}

// State is a copy of everything a host renders.
type State struct {
	Phase        Phase
	Conversation *model.Conversation
	Roster       model.Roster
	RosterPage   int
	RosterPages  int
	SessionID    string
	ActiveID     string
	UserID       string
	Model        string
	Staged       []model.Attachment
	Project      *model.Project
	Loading      bool
	SignedOut    bool
}

// Messages returns the active conversation's messages, or nil.
func (s State) Messages() []*model.Message {
	if s.Conversation == nil {
		return nil
	}
	return s.Conversation.Messages
}

// Title returns the active conversation's title, or the default title.
func (s State) Title() string {
	if s.Conversation == nil || s.Conversation.Title == "" {
		return model.DefaultTitle
	}
	return s.Conversation.Title
}
