// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultTitle names a conversation whose first message has no text.
	DefaultTitle = "New Chat"

	// titleRunes is how much of the first message becomes the local title.
	titleRunes = 30
)

// Conversation is the active chat thread. ID stays empty until the backend
// assigns one on the first successful exchange.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	Model     string     `json:"model"`
	ProjectID string     `json:"project_id,omitempty"`
	Messages  []*Message `json:"messages"`
}

// NewConversation creates an unsaved conversation for the given model.
func NewConversation(model string) *Conversation {
	return &Conversation{
		Title:     DefaultTitle,
		CreatedAt: time.Now(),
		Model:     model,
	}
}

// Persisted reports whether the backend has assigned an ID.
func (c *Conversation) Persisted() bool {
	return c.ID != ""
}

// Append adds msg to the end of the conversation.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
}

// Last returns the final message, or nil for an empty conversation.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Entry describes the conversation as a roster row.
func (c *Conversation) Entry() RosterEntry {
	return RosterEntry{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.updatedAt(),
		Model:        c.Model,
		MessageCount: len(c.Messages),
	}
}

func (c *Conversation) updatedAt() time.Time {
	if last := c.Last(); last != nil {
		return last.Timestamp
	}
	return c.CreatedAt
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = make([]*Message, len(c.Messages))
	for i, m := range c.Messages {
		cp.Messages[i] = m.Clone()
	}
	return &cp
}

// DeriveTitle builds the local title of a new conversation from its first
// message: the first 30 characters followed by "...", or DefaultTitle when
// the text is blank. The backend replaces it with its own title once the
// roster is refreshed.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) > titleRunes {
		runes = runes[:titleRunes]
	}
	return string(runes) + "..."
}
