// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Project is a named knowledge base. Conversations started inside a project
// are answered with its documents and instructions.
type Project struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Goal            string     `json:"goal"`
	Instructions    string     `json:"instructions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Documents       []Document `json:"documents,omitempty"`
	ConversationIDs []string   `json:"conversation_ids,omitempty"`
}

// Document is a file stored in a project.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SizeMB    float64   `json:"size_mb"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a local file read into memory for upload.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (a Attachment) Size() int64 {
	return int64(len(a.Data))
}

// AttachmentNames lists the names of the given attachments.
func AttachmentNames(atts []Attachment) []string {
	if len(atts) == 0 {
		return nil
	}
	names := make([]string, len(atts))
	for i, a := range atts {
		names[i] = a.Name
	}
	return names
}
