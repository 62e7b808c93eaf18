// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseIdentity(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr error
	}{
		{
			name:   "oid preferred",
			token:  makeToken(t, jwt.MapClaims{"oid": "object-1", "sub": "subject-1", "exp": future}),
			wantID: "object-1",
		},
		{
			name:   "sub fallback",
			token:  makeToken(t, jwt.MapClaims{"sub": "subject-1"}),
			wantID: "subject-1",
		},
		{
			name:    "missing id",
			token:   makeToken(t, jwt.MapClaims{"name": "Ada"}),
			wantErr: ErrMissingClaim,
		},
		{
			name:    "expired keeps identity",
			token:   makeToken(t, jwt.MapClaims{"oid": "object-1", "exp": past}),
			wantID:  "object-1",
			wantErr: ErrExpiredToken,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: ErrInvalidToken,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseIdentity(tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tc.wantID != "" {
				require.NotNil(t, id)
				assert.Equal(t, tc.wantID, id.UserID)
			}
		})
	}
}

func TestParseIdentityDisplayClaims(t *testing.T) {
	id, err := ParseIdentity(makeToken(t, jwt.MapClaims{
		"oid":                "u1",
		"name":               "Ada Lovelace",
		"preferred_username": "ada@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", id.Name)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.True(t, id.ExpiresAt.IsZero())
	assert.False(t, id.Expired(time.Now()))
}

func TestLoginLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley", "token")
	token := makeToken(t, jwt.MapClaims{"oid": "u1"})

	id, err := Login(path, "  "+token+"\n")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)

	src := NewFileSource(path, "", nil)
	got, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)

	require.NoError(t, Logout(path))
	require.NoError(t, Logout(path), "second logout is a no-op")
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Login(path, "")
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = Login(path, "junk")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	tok, err := NewStaticSource(" abc ").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = NewStaticSource("").Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = NewStaticSource("abc").Refresh(ctx)
	assert.ErrorIs(t, err, ErrRefreshUnavailable)
}

func TestNewSourcePrefersEnvironment(t *testing.T) {
	t.Setenv(EnvToken, "from-env")
	src := NewSource(filepath.Join(t.TempDir(), "token"), "", nil)
	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	t.Setenv(EnvToken, "")
	_, ok := NewSource("token", "", nil).(*FileSource)
	assert.True(t, ok)
}

func TestFileSourceRefresh(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	src := NewFileSource(path, "", nil)
	_, err := src.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))
	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", tok)

	// Unchanged file cannot satisfy a refresh.
	_, err = src.Refresh(ctx)
	assert.ErrorIs(t, err, ErrRefreshUnavailable)

	t.Run("refresh command rewrites the file", func(t *testing.T) {
		withCmd := NewFileSource(path, "renew-token", nil)
		var ran string
		withCmd.run = func(_ context.Context, command string) error {
			ran = command
			return os.WriteFile(path, []byte("new"), 0o600)
		}
		_, err := withCmd.Token(ctx)
		require.NoError(t, err)

		tok, err := withCmd.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new", tok)
		assert.Equal(t, "renew-token", ran)
	})

	t.Run("refresh command failure", func(t *testing.T) {
		failing := NewFileSource(path, "false", nil)
		failing.run = func(context.Context, string) error { return errors.New("exit 1") }
		_, err := failing.Refresh(ctx)
		assert.ErrorIs(t, err, ErrRefreshUnavailable)
	})
}

func TestFileSourceWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewFileSource(path, "", nil)
	require.NoError(t, src.Watch(ctx))

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "first", tok)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))

	select {
	case <-src.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("token file change not observed")
	}
	assert.Eventually(t, func() bool {
		tok, err := src.Token(ctx)
		return err == nil && tok == "second"
	}, 5*time.Second, 20*time.Millisecond)
}
