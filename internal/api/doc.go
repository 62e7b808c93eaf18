// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the chat assistant backend.
//
// Every call carries a bearer token from an auth.TokenSource (except the
// public share endpoint), a fresh X-Request-ID, and passes through a
// client-side rate limiter. A 401 triggers one token refresh and one retry;
// a second rejection surfaces as ErrUnauthorized.
//
// # Key Types
//
//   - Client: the backend client, configured with With* builders
//   - APIError: a non-2xx reply; unwraps to ErrNotFound, ErrForbidden,
//     ErrRateLimited, ErrServer, ErrUnauthorized or ErrBadRequest
//   - GenerateResponse, SearchResponse: replies to a sent message
//   - RosterPage, ConversationDetail, SharedConversation: read models
//   - Record: one stored turn, converted with Record.Turn
//
// # Usage
//
//	client := api.New(cfg.API.BaseURL, tokens).
//	    WithTimeout(cfg.API.Timeout.Duration).
//	    WithRateLimit(cfg.API.RateLimit, cfg.API.Burst).
//	    WithLogger(logger)
//
//	resp, err := client.Generate(ctx, "gpt-4o", "hello", userID, api.GenerateOptions{})
package api
