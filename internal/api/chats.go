// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jeranaias/parley/internal/model"
)

func chatPath(id string) string {
	return "/api/chats/" + url.PathEscape(id)
}

// ListRoster returns one page of the user's conversations, most recently
// updated first.
func (c *Client) ListRoster(ctx context.Context, userID string, page, limit int) (*RosterPage, error) {
	var out RosterPage
	err := c.send(ctx, request{
		method: http.MethodGet,
		path:   "/api/chats",
		query: map[string]string{
			"user_id": userID,
			"page":    strconv.Itoa(page),
			"limit":   strconv.Itoa(limit),
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchConversation returns a conversation and its stored turns.
func (c *Client) FetchConversation(ctx context.Context, id, userID string) (*ConversationDetail, error) {
	var out ConversationDetail
	err := c.send(ctx, request{
		method: http.MethodGet,
		path:   chatPath(id),
		query:  map[string]string{"user_id": userID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation removes a conversation. A 200 reply can still carry
// success=false; callers check DeleteResult.Success.
func (c *Client) DeleteConversation(ctx context.Context, id string) (*DeleteResult, error) {
	var out DeleteResult
	if err := c.send(ctx, request{method: http.MethodDelete, path: chatPath(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearConversations removes every conversation of the user.
func (c *Client) ClearConversations(ctx context.Context) (*ClearResult, error) {
	var out ClearResult
	if err := c.send(ctx, request{method: http.MethodDelete, path: "/api/chats"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameConversation changes a conversation's title.
func (c *Client) RenameConversation(ctx context.Context, id, title string) error {
	return c.send(ctx, request{
		method: http.MethodPut,
		path:   chatPath(id),
		body:   map[string]string{"title": title},
	}, nil)
}

// ShareConversation creates (or returns the existing) public link.
func (c *Client) ShareConversation(ctx context.Context, id string) (*ShareResult, error) {
	var out ShareResult
	if err := c.send(ctx, request{method: http.MethodPost, path: chatPath(id) + "/share"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSharedConversation returns a shared snapshot. No token is sent.
func (c *Client) FetchSharedConversation(ctx context.Context, shareID string) (*SharedConversation, error) {
	var out SharedConversation
	err := c.send(ctx, request{
		method: http.MethodGet,
		path:   "/share/" + url.PathEscape(shareID),
		public: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLogin checks that the backend accepts the current token.
func (c *Client) VerifyLogin(ctx context.Context) error {
	return c.send(ctx, request{method: http.MethodGet, path: "/login"}, nil)
}

func documentFields(docs []model.Attachment) []formFile {
	if len(docs) == 0 {
		return nil
	}
	out := make([]formFile, len(docs))
	for i, d := range docs {
		out[i] = formFile{param: documentsField, attachment: d}
	}
	return out
}
