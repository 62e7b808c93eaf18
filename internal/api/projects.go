// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/parley/internal/model"
)

func projectPath(id string) string {
	return "/api/projects/" + url.PathEscape(id)
}

// ListProjects returns the user's projects.
func (c *Client) ListProjects(ctx context.Context, userID string) ([]ProjectSummary, error) {
	var out struct {
		Projects []ProjectSummary `json:"projects"`
	}
	err := c.send(ctx, request{
		method: http.MethodGet,
		path:   "/api/projects",
		query:  map[string]string{"user_id": userID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// CreateProject creates a project and returns it.
func (c *Client) CreateProject(ctx context.Context, userID, name, goal, instructions string) (*ProjectSummary, error) {
	var out struct {
		Success bool            `json:"success"`
		Project *ProjectSummary `json:"project"`
	}
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/api/projects",
		body: map[string]string{
			"user_id":      userID,
			"name":         name,
			"goal":         goal,
			"instructions": instructions,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Project == nil {
		return nil, ErrMalformedResponse
	}
	return out.Project, nil
}

// FetchProject returns a project's documents and latest conversation.
func (c *Client) FetchProject(ctx context.Context, id, userID string) (*ProjectDetail, error) {
	var out ProjectDetail
	err := c.send(ctx, request{
		method: http.MethodGet,
		path:   projectPath(id),
		query:  map[string]string{"user_id": userID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProjectInstructions replaces a project's custom instructions.
func (c *Client) UpdateProjectInstructions(ctx context.Context, id, userID, instructions string) error {
	return c.send(ctx, request{
		method: http.MethodPatch,
		path:   projectPath(id),
		body: map[string]string{
			"user_id":      userID,
			"instructions": instructions,
		},
	}, nil)
}

// UploadProjectDocument stores one document in a project under name.
func (c *Client) UploadProjectDocument(ctx context.Context, id, userID, name string, doc model.Attachment) (*DocumentInfo, error) {
	var out struct {
		Success  bool          `json:"success"`
		Document *DocumentInfo `json:"document"`
	}
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   projectPath(id) + "/documents",
		form: map[string]string{
			"user_id":       userID,
			"document_name": name,
		},
		files: []formFile{{param: "document", attachment: doc}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Document == nil {
		return nil, ErrMalformedResponse
	}
	return out.Document, nil
}
