// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/parley/internal/viewer"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONFormatVersion identifies the layout of JSON exports.
const JSONFormatVersion = "parley.conversation.v1"

// Document is the top-level object of a JSON export.
type Document struct {
	Format       string       `json:"format"`
	ExportedAt   time.Time    `json:"exported_at"`
	Conversation *viewer.View `json:"conversation"`
}

// JSONExporter exports the complete conversation. Metadata and timestamp
// options do not filter it.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(v *viewer.View) ([]byte, error) {
	if v == nil {
		return nil, ErrNilConversation
	}
	out, err := json.MarshalIndent(Document{
		Format:       JSONFormatVersion,
		ExportedAt:   e.options.now().UTC(),
		Conversation: v,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
