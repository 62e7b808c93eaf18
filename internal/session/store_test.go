// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, path, tab string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(path, tab, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStores(t *testing.T) {
	tests := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
		{"sqlite", func(t *testing.T) Store {
			return openTestSQLite(t, filepath.Join(t.TempDir(), "session.db"), "tab-a")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := tc.open(t)

			v, err := s.Get(ctx, KeyConversationID)
			require.NoError(t, err)
			assert.Empty(t, v)

			require.NoError(t, s.Set(ctx, KeyConversationID, "chat-1"))
			require.NoError(t, s.Set(ctx, KeyUserID, "u1"))
			require.NoError(t, s.Set(ctx, KeyConversationID, "chat-2"))
			v, err = s.Get(ctx, KeyConversationID)
			require.NoError(t, err)
			assert.Equal(t, "chat-2", v)

			require.NoError(t, s.Delete(ctx, KeyConversationID))
			v, _ = s.Get(ctx, KeyConversationID)
			assert.Empty(t, v)
			v, _ = s.Get(ctx, KeyUserID)
			assert.Equal(t, "u1", v)

			require.NoError(t, s.Set(ctx, KeyConversationID, "chat-3"))
			require.NoError(t, s.Set(ctx, KeyConversationID, ""))
			v, _ = s.Get(ctx, KeyConversationID)
			assert.Empty(t, v, "empty value deletes")

			require.NoError(t, s.Clear(ctx))
			v, _ = s.Get(ctx, KeyUserID)
			assert.Empty(t, v)

			require.NoError(t, s.Close())
			_, err = s.Get(ctx, KeyUserID)
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestSQLiteTabsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")
	a := openTestSQLite(t, path, "tab-a")
	b := openTestSQLite(t, path, "tab-b")

	require.NoError(t, a.Set(ctx, KeyConversationID, "chat-a"))
	require.NoError(t, b.Set(ctx, KeyConversationID, "chat-b"))

	v, _ := a.Get(ctx, KeyConversationID)
	assert.Equal(t, "chat-a", v)
	v, _ = b.Get(ctx, KeyConversationID)
	assert.Equal(t, "chat-b", v)

	require.NoError(t, a.Clear(ctx))
	v, _ = b.Get(ctx, KeyConversationID)
	assert.Equal(t, "chat-b", v)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	s, err := OpenSQLite(path, "tab-a", time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyUserID, "u1"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	s = openTestSQLite(t, path, "tab-a")
	v, err := s.Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "u1", v)
}

func TestSQLiteIdleExpiry(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")
	s := openTestSQLite(t, path, "tab-a")

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, KeyConversationID, "chat-1"))
	require.NoError(t, s.Set(ctx, KeyUserID, "u1"))

	now = now.Add(30 * time.Minute)
	v, _ := s.Get(ctx, KeyConversationID)
	assert.Equal(t, "chat-1", v)

	// Writing one key keeps the whole tab alive.
	require.NoError(t, s.Set(ctx, KeyConversationID, "chat-2"))
	now = now.Add(45 * time.Minute)
	v, _ = s.Get(ctx, KeyUserID)
	assert.Equal(t, "u1", v)

	now = now.Add(2 * time.Hour)
	v, err := s.Get(ctx, KeyConversationID)
	require.NoError(t, err)
	assert.Empty(t, v)

	now = now.Add(-2 * time.Hour)
	v, _ = s.Get(ctx, KeyUserID)
	assert.Empty(t, v, "expired tab was removed")
}

func TestSQLitePrunesOnOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")
	old := openTestSQLite(t, path, "old-tab")
	old.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	require.NoError(t, old.Set(ctx, KeyUserID, "u1"))

	fresh := openTestSQLite(t, path, "fresh-tab")
	var rows int
	require.NoError(t, fresh.db.QueryRow(`SELECT COUNT(*) FROM session_values`).Scan(&rows))
	assert.Zero(t, rows)
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "", "", 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("SQLite", filepath.Join(t.TempDir(), "s.db"), "tab", 0, nil)
	require.NoError(t, err)
	defer s.Close()
	sq, ok := s.(*SQLiteStore)
	require.True(t, ok)
	assert.Equal(t, "tab", sq.Tab())
	assert.Equal(t, DefaultIdleTimeout, sq.idle)

	_, err = Open("redis", "", "", 0, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = OpenSQLite("", "tab", 0, nil)
	assert.Error(t, err)
}

func TestTabID(t *testing.T) {
	t.Setenv(EnvTab, "  work  ")
	assert.Equal(t, "work", TabID())

	t.Setenv(EnvTab, "")
	assert.Regexp(t, `^ppid-\d+$`, TabID())
}
