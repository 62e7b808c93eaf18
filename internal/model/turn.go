// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Turn is one backend message record. Either half may be missing.
type Turn struct {
	UserText      string
	AssistantText string
	CreatedAt     time.Time
	Order         int
	ContentType   string
	DocumentNames []string
}

// ContentTypeImage marks a turn whose assistant half is an image URL.
const ContentTypeImage = "image"

// Messages expands the turn into its user message followed by its
// assistant message. Empty halves are dropped.
func (t Turn) Messages() []*Message {
	out := make([]*Message, 0, 2)
	if t.UserText != "" {
		m := NewUserMessage(t.UserText, t.DocumentNames)
		m.Timestamp = t.CreatedAt
		out = append(out, m)
	}
	if t.AssistantText != "" {
		var m *Message
		if t.ContentType == ContentTypeImage {
			m = NewImageMessage(t.AssistantText)
		} else {
			m = NewAssistantMessage(t.AssistantText)
		}
		m.Timestamp = t.CreatedAt
		if len(t.DocumentNames) > 0 {
			m.Attachments = append([]string(nil), t.DocumentNames...)
		}
		out = append(out, m)
	}
	return out
}

// Flatten expands turns into messages, preserving turn order.
func Flatten(turns []Turn) []*Message {
	out := make([]*Message, 0, len(turns)*2)
	for _, t := range turns {
		out = append(out, t.Messages()...)
	}
	return out
}
