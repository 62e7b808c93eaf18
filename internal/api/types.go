// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// TIMESTAMPS
// =============================================================================

// Timestamp decodes the several date formats the backend emits: ISO 8601
// with or without zone and fraction, and HTTP dates. Unparseable or null
// values decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123,
	time.RFC1123Z,
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if bytes.Equal(data, []byte("null")) || json.Unmarshal(data, &s) != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parseTimestamp(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// =============================================================================
// MESSAGE GENERATION
// =============================================================================

// GenerateOptions are the optional parts of a generate call.
type GenerateOptions struct {
	// ConversationID continues an existing thread; empty starts a new one.
	ConversationID string
	// GenerateImage asks for an image instead of text.
	GenerateImage bool
	// Documents makes the call multipart and uploads each file.
	Documents []model.Attachment
}

// GenerateResponse is the reply to a generate call. A missing or null
// conversation_id decodes to the empty string.
type GenerateResponse struct {
	ConversationID string   `json:"conversation_id"`
	Response       string   `json:"response"`
	ResponseType   string   `json:"response_type"`
	ImageURL       string   `json:"image_url"`
	DocumentNames  []string `json:"document_names"`
	ModelUsed      string   `json:"model_used"`
}

// ResponseTypeImage marks a generate reply that carries an image URL.
const ResponseTypeImage = "image"

// IsImage reports whether the reply is a generated image.
func (r *GenerateResponse) IsImage() bool {
	return r.ResponseType == ResponseTypeImage && r.ImageURL != ""
}

// SearchResponse is the reply to a web search call.
type SearchResponse struct {
	ConversationID string                  `json:"conversation_id"`
	Response       string                  `json:"response"`
	Sources        map[string]model.Source `json:"sources"`
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ChatSummary is one conversation as listed by the backend.
type ChatSummary struct {
	ID            string    `json:"_id"`
	AltID         string    `json:"id,omitempty"`
	Title         string    `json:"title"`
	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
	ModelName     string    `json:"model_name"`
	MessageCount  int       `json:"message_count"`
	DocumentNames []string  `json:"document_names"`
	ProjectID     string    `json:"project_id,omitempty"`
}

// Identifier returns the conversation id, whichever key the backend used.
func (s ChatSummary) Identifier() string {
	if s.ID != "" {
		return s.ID
	}
	return s.AltID
}

// Entry converts the summary to a roster row.
func (s ChatSummary) Entry() model.RosterEntry {
	return model.RosterEntry{
		ID:           s.Identifier(),
		Title:        s.Title,
		CreatedAt:    s.CreatedAt.Time,
		UpdatedAt:    s.UpdatedAt.Time,
		Model:        s.ModelName,
		MessageCount: s.MessageCount,
	}
}

// RosterPage is one page of the conversation list.
type RosterPage struct {
	Chats []ChatSummary `json:"chats"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int           `json:"pages"`
}

// Roster converts the page to roster rows, dropping rows without an id.
func (p *RosterPage) Roster() model.Roster {
	out := make(model.Roster, 0, len(p.Chats))
	for _, c := range p.Chats {
		if e := c.Entry(); e.ID != "" {
			out = append(out, e)
		}
	}
	return out
}

// Record is one stored turn. Regular chats use user_role/assistant_role;
// project chats use user_message/assistant_message.
type Record struct {
	UserRole         string    `json:"user_role,omitempty"`
	AssistantRole    string    `json:"assistant_role,omitempty"`
	UserMessage      string    `json:"user_message,omitempty"`
	AssistantMessage string    `json:"assistant_message,omitempty"`
	CreatedAt        Timestamp `json:"created_at"`
	Order            int       `json:"order"`
	ContentType      string    `json:"content_type,omitempty"`
	DocumentNames    []string  `json:"document_names,omitempty"`
}

// Turn converts the record to the model form.
func (r Record) Turn() model.Turn {
	user, assistant := r.UserRole, r.AssistantRole
	if user == "" {
		user = r.UserMessage
	}
	if assistant == "" {
		assistant = r.AssistantMessage
	}
	return model.Turn{
		UserText:      user,
		AssistantText: assistant,
		CreatedAt:     r.CreatedAt.Time,
		Order:         r.Order,
		ContentType:   r.ContentType,
		DocumentNames: r.DocumentNames,
	}
}

// Turns converts records in order.
func Turns(records []Record) []model.Turn {
	out := make([]model.Turn, len(records))
	for i, r := range records {
		out[i] = r.Turn()
	}
	return out
}

// ConversationDetail is a conversation fetched by id.
type ConversationDetail struct {
	Chat     ChatSummary `json:"chat"`
	Messages []Record    `json:"messages"`
}

// Conversation converts the detail to a persisted model conversation.
func (d *ConversationDetail) Conversation(id string) *model.Conversation {
	if cid := d.Chat.Identifier(); cid != "" {
		id = cid
	}
	title := d.Chat.Title
	if title == "" {
		title = model.DefaultTitle
	}
	return &model.Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: d.Chat.CreatedAt.Time,
		Model:     d.Chat.ModelName,
		ProjectID: d.Chat.ProjectID,
		Messages:  model.Flatten(Turns(d.Messages)),
	}
}

// DeleteResult is the reply to a delete call.
type DeleteResult struct {
	Success              bool   `json:"success"`
	Error                string `json:"error,omitempty"`
	ChatID               string `json:"chat_id,omitempty"`
	ConversationsDeleted int    `json:"conversations_deleted,omitempty"`
}

// ClearResult is the reply to clearing every conversation.
type ClearResult struct {
	Success      bool `json:"success"`
	ChatsDeleted int  `json:"chats_deleted"`
}

// ShareResult is the reply to a share request.
type ShareResult struct {
	Success  bool   `json:"success"`
	ShareID  string `json:"share_id"`
	ShareURL string `json:"share_url"`
	Message  string `json:"message,omitempty"`
}

// SharedConversation is the public, read-only snapshot of a conversation.
type SharedConversation struct {
	Title         string    `json:"title"`
	CreatedAt     Timestamp `json:"created_at"`
	SharedAt      Timestamp `json:"shared_at"`
	ModelName     string    `json:"model_name"`
	DocumentNames []string  `json:"document_names"`
	MessageCount  int       `json:"message_count"`
	Messages      []Record  `json:"messages"`
}

// =============================================================================
// PROJECTS
// =============================================================================

// ProjectSummary is a project as returned by list and create calls.
type ProjectSummary struct {
	ID           string    `json:"_id"`
	AltID        string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Goal         string    `json:"goal"`
	Instructions string    `json:"instructions,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
}

// Project converts the summary to the model form.
func (p ProjectSummary) Project() model.Project {
	id := p.ID
	if id == "" {
		id = p.AltID
	}
	return model.Project{
		ID:           id,
		Name:         p.Name,
		Goal:         p.Goal,
		Instructions: p.Instructions,
		CreatedAt:    p.CreatedAt.Time,
	}
}

// DocumentInfo is a stored project document.
type DocumentInfo struct {
	ID        string    `json:"_id"`
	AltID     string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	SizeMB    float64   `json:"size_mb"`
	Type      string    `json:"type"`
	CreatedAt Timestamp `json:"created_at"`
}

// Document converts the info to the model form.
func (d DocumentInfo) Document() model.Document {
	id := d.ID
	if id == "" {
		id = d.AltID
	}
	return model.Document{
		ID:        id,
		Name:      d.Name,
		SizeMB:    d.SizeMB,
		Type:      d.Type,
		CreatedAt: d.CreatedAt.Time,
	}
}

// ProjectDetail is a project with its documents and latest conversation.
type ProjectDetail struct {
	Project       *ProjectSummary `json:"project,omitempty"`
	Chat          *ChatSummary    `json:"chat,omitempty"`
	Messages      []Record        `json:"messages"`
	Documents     []DocumentInfo  `json:"documents"`
	Conversations []ChatSummary   `json:"conversations,omitempty"`
}

// ProjectGenerateOptions are the optional parts of a project generate call.
type ProjectGenerateOptions struct {
	ConversationID string
	GenerateImage  bool
	Documents      []model.Attachment
}
