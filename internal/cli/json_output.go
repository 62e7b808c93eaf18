// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - machine-readable output for --json.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/parley/internal/model"
)

// JSONResponse wraps every --json result.
type JSONResponse struct {
	// Success is false when Error is set.
	Success bool `json:"success"`

	// Data is the command-specific payload.
	Data any `json:"data"`

	// Error is the error message, null on success.
	Error *string `json:"error"`

	// Timestamp is when the response was produced (RFC 3339, UTC).
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w, indented.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND PAYLOADS
// =============================================================================

// AskData is the result of "parley ask".
type AskData struct {
	ConversationID string                  `json:"conversation_id"`
	Title          string                  `json:"title"`
	Model          string                  `json:"model"`
	Mode           string                  `json:"mode"`
	Response       string                  `json:"response,omitempty"`
	ImageURL       string                  `json:"image_url,omitempty"`
	Sources        map[string]model.Source `json:"sources,omitempty"`
	Documents      []string                `json:"documents,omitempty"`
	DurationMs     int64                   `json:"duration_ms"`
}

// HistoryData is one page of "parley history".
type HistoryData struct {
	Page          int                 `json:"page"`
	Pages         int                 `json:"pages"`
	ActiveID      string              `json:"active_id,omitempty"`
	Conversations []model.RosterEntry `json:"conversations"`
}

// WhoamiData describes the signed-in user.
type WhoamiData struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Backend   string    `json:"backend"`
	SessionID string    `json:"session_id,omitempty"`
}

// ShareData is the result of "parley share".
type ShareData struct {
	ConversationID string `json:"conversation_id"`
	URL            string `json:"url"`
}

// VersionData is the result of "parley version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// ProjectData is the result of "parley projects show".
type ProjectData struct {
	Project       model.Project       `json:"project"`
	Documents     []model.Document    `json:"documents"`
	Conversations model.Roster        `json:"conversations"`
	Latest        *model.Conversation `json:"latest,omitempty"`
}
