// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"
)

// EnvToken names the environment variable holding a static token.
const EnvToken = "PARLEY_TOKEN"

var (
	// ErrNoToken means no token is configured.
	ErrNoToken = errors.New("no token: run 'parley login' or set " + EnvToken)

	// ErrRefreshUnavailable means a rejected token could not be replaced.
	ErrRefreshUnavailable = errors.New("token refresh unavailable")
)

// TokenSource provides bearer tokens to the API client.
type TokenSource interface {
	// Token returns the current token.
	Token(ctx context.Context) (string, error)
	// Refresh discards the current token and returns a new one.
	Refresh(ctx context.Context) (string, error)
}

// StaticSource always returns the same token.
type StaticSource struct {
	token string
}

// NewStaticSource wraps a fixed token.
func NewStaticSource(token string) *StaticSource {
	return &StaticSource{token: strings.TrimSpace(token)}
}

// Token returns the fixed token.
func (s *StaticSource) Token(context.Context) (string, error) {
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Refresh always fails; a static token cannot be renewed.
func (s *StaticSource) Refresh(context.Context) (string, error) {
	return "", ErrRefreshUnavailable
}

// NewSource picks the token source: PARLEY_TOKEN when set, otherwise the
// token file.
func NewSource(tokenFile, refreshCommand string, log *zap.Logger) TokenSource {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return NewStaticSource(token)
	}
	return NewFileSource(tokenFile, refreshCommand, log)
}
