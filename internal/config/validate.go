// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field found by Validate.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout.Duration <= 0 {
		add("api.timeout", "must be positive")
	}
	if c.API.RateLimit <= 0 {
		add("api.rate_limit", "must be positive")
	}
	if c.API.Burst < 1 {
		add("api.burst", "must be at least 1")
	}
	if c.API.MaxResponseBytes < 1024 {
		add("api.max_response_bytes", "must be at least 1024")
	}

	if len(c.Chat.Models) == 0 {
		add("chat.models", "must list at least one model")
	} else if !slices.Contains(c.Chat.Models, c.Chat.DefaultModel) {
		add("chat.default_model", "%q is not in chat.models", c.Chat.DefaultModel)
	}
	for _, m := range c.Chat.SearchModels {
		if !slices.Contains(c.Chat.Models, m) {
			add("chat.search_models", "%q is not in chat.models", m)
		}
	}
	if c.Chat.RosterPageSize < 1 || c.Chat.RosterPageSize > 100 {
		add("chat.roster_page_size", "must be between 1 and 100")
	}

	switch strings.ToLower(c.Session.Backend) {
	case "memory", "sqlite":
	default:
		add("session.backend", "must be memory or sqlite, got %q", c.Session.Backend)
	}
	if c.Session.IdleTimeout.Duration <= 0 {
		add("session.idle_timeout", "must be positive")
	}

	if c.Attachments.MaxSizeMB < 1 {
		add("attachments.max_size_mb", "must be at least 1")
	}
	for _, ext := range c.Attachments.Extensions {
		if ext == "" || strings.ContainsAny(ext, "./\\ ") {
			add("attachments.extensions", "invalid extension %q", ext)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "console", "json":
	default:
		add("log.encoding", "must be console or json")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
