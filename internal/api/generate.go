// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
)

// documentsField is the multipart field name for uploaded documents.
const documentsField = "documents[]"

type generateRequest struct {
	ModelName      string `json:"model_name"`
	InputText      string `json:"input_text"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	GenerateImage  bool   `json:"generate_image,omitempty"`
}

// multipart renders the request as form fields for document uploads.
func (g generateRequest) multipart() map[string]string {
	form := map[string]string{
		"model_name": g.ModelName,
		"input_text": g.InputText,
		"user_id":    g.UserID,
	}
	if g.ConversationID != "" {
		form["conversation_id"] = g.ConversationID
	}
	if g.GenerateImage {
		form["generate_image"] = "true"
	}
	return form
}

func (g generateRequest) call(path string, docs []formFile) request {
	if len(docs) > 0 {
		return request{method: http.MethodPost, path: path, form: g.multipart(), files: docs}
	}
	return request{method: http.MethodPost, path: path, body: g}
}

// Generate sends a message and returns the assistant's reply. With
// documents the call is multipart and each file is uploaded under
// "documents[]".
func (c *Client) Generate(ctx context.Context, modelName, text, userID string, opts GenerateOptions) (*GenerateResponse, error) {
	req := generateRequest{
		ModelName:      modelName,
		InputText:      text,
		UserID:         userID,
		ConversationID: opts.ConversationID,
		GenerateImage:  opts.GenerateImage,
	}
	var out GenerateResponse
	if err := c.send(ctx, req.call("/generate-response", documentFields(opts.Documents)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WebSearch answers query with web grounding and returns cited sources.
func (c *Client) WebSearch(ctx context.Context, query, modelName, conversationID, userID string) (*SearchResponse, error) {
	body := map[string]string{
		"query":   query,
		"model":   modelName,
		"user_id": userID,
	}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	var out SearchResponse
	if err := c.send(ctx, request{method: http.MethodPost, path: "/api/bing-grounding", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProjectGenerate sends a message inside a project; the backend answers with
// the project's documents and instructions in context.
func (c *Client) ProjectGenerate(ctx context.Context, projectID, modelName, text, userID string, opts ProjectGenerateOptions) (*GenerateResponse, error) {
	req := generateRequest{
		ModelName:      modelName,
		InputText:      text,
		UserID:         userID,
		ConversationID: opts.ConversationID,
		GenerateImage:  opts.GenerateImage,
	}
	path := "/api/projects/" + url.PathEscape(projectID) + "/conversation"
	var out GenerateResponse
	if err := c.send(ctx, req.call(path, documentFields(opts.Documents)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
