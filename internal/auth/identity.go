// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/parley/internal/util"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired: run 'parley login'")
	ErrMissingClaim = errors.New("missing required claim")
)

// Identity is the signed-in user as described by the token's claims.
type Identity struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token expired before now.
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// ParseIdentity reads the claims of token without verifying its signature;
// the backend verifies it on every call. The user id is the "oid" claim,
// falling back to "sub". An expired token returns the identity together
// with ErrExpiredToken.
func ParseIdentity(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := &Identity{
		UserID: firstClaim(claims, "oid", "sub"),
		Name:   firstClaim(claims, "name", "given_name"),
		Email:  firstClaim(claims, "preferred_username", "email", "upn"),
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("%w: oid or sub", ErrMissingClaim)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		id.ExpiresAt = exp.Time
		if id.Expired(time.Now()) {
			return id, ErrExpiredToken
		}
	}
	return id, nil
}

func firstClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if v, ok := claims[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Login validates token and stores it at path with owner-only permissions.
func Login(path, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	id, err := ParseIdentity(token)
	if err != nil {
		return nil, err
	}
	if err := util.AtomicWriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return id, nil
}

// Logout removes the token file. A missing file is not an error.
func Logout(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
