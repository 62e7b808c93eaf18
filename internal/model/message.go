// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// ROLE
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DisplayName returns a label for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// SOURCE
// =============================================================================

// Source is one citation returned by a web search reply.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single entry in a conversation. Messages are never edited
// after they are appended; use Clone before handing one to another goroutine.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Attachments lists document names: uploaded files on user messages,
	// documents the backend reports it used on assistant messages.
	Attachments []string `json:"attachments,omitempty"`

	// ImageURL is set on assistant messages produced in image mode.
	ImageURL string `json:"image_url,omitempty"`

	// Sources maps citation keys ("0", "1", ...) to search results.
	Sources map[string]Source `json:"sources,omitempty"`
}

func newMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message with the given attachment names.
func NewUserMessage(content string, attachments []string) *Message {
	m := newMessage(RoleUser, content)
	if len(attachments) > 0 {
		m.Attachments = append([]string(nil), attachments...)
	}
	return m
}

// NewAssistantMessage creates a plain-text assistant reply.
func NewAssistantMessage(content string) *Message {
	return newMessage(RoleAssistant, content)
}

// NewImageMessage creates an assistant reply that carries only a generated
// image reference.
func NewImageMessage(imageURL string) *Message {
	m := newMessage(RoleAssistant, "")
	m.ImageURL = imageURL
	return m
}

// NewSearchMessage creates an assistant reply with search citations.
func NewSearchMessage(content string, sources map[string]Source) *Message {
	m := newMessage(RoleAssistant, content)
	if len(sources) > 0 {
		m.Sources = make(map[string]Source, len(sources))
		for k, v := range sources {
			m.Sources[k] = v
		}
	}
	return m
}

// HasImage reports whether the message references a generated image.
func (m *Message) HasImage() bool {
	return m.ImageURL != ""
}

// SourceKeys returns the citation keys in display order: numeric keys
// ascending first, then any others alphabetically.
func (m *Message) SourceKeys() []string {
	keys := make([]string, 0, len(m.Sources))
	for k := range m.Sources {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Preview returns the first line of the content, cut to maxLen runes.
// A maxLen <= 0 yields "".
func (m *Message) Preview(maxLen int) string {
	content := m.Content
	if content == "" && m.HasImage() {
		content = "[image] " + m.ImageURL
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	return util.TruncateRunes(content, maxLen)
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Attachments != nil {
		c.Attachments = append([]string(nil), m.Attachments...)
	}
	if m.Sources != nil {
		c.Sources = make(map[string]Source, len(m.Sources))
		for k, v := range m.Sources {
			c.Sources[k] = v
		}
	}
	return &c
}
