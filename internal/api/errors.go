// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the backend rejected the token even after a refresh.
	ErrUnauthorized = errors.New("unauthorized: run 'parley login'")

	// ErrForbidden means the token is valid but lacks access.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the conversation, share or project does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited means the backend or the local limiter refused the call.
	ErrRateLimited = errors.New("rate limited")

	// ErrBadRequest means the backend rejected the request payload.
	ErrBadRequest = errors.New("bad request")

	// ErrServer means the backend failed with a 5xx status.
	ErrServer = errors.New("server error")

	// ErrResponseTooLarge means the reply exceeded the configured size limit.
	ErrResponseTooLarge = errors.New("response too large")

	// ErrMalformedResponse means the reply was not the expected JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap maps the status onto the package sentinels so callers can use
// errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrServer
	case e.Status >= 400:
		return ErrBadRequest
	default:
		return nil
	}
}

// newAPIError extracts the backend's message from body. The backend answers
// errors with {"error": "..."}; anything else falls back to the raw text.
func newAPIError(status int, body []byte, requestID string) *APIError {
	e := &APIError{Status: status, RequestID: requestID}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		var s string
		var nested struct {
			Message string `json:"message"`
		}
		switch {
		case json.Unmarshal(payload.Error, &s) == nil && s != "":
			e.Message = s
		case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
			e.Message = nested.Message
		case payload.Message != "":
			e.Message = payload.Message
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
		if r := []rune(e.Message); len(r) > 200 {
			e.Message = string(r[:200]) + "..."
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
