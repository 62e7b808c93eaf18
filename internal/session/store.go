// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Key names a cached value.
type Key string

const (
	// KeyConversationID is the conversation the tab is continuing.
	KeyConversationID Key = "conversation_id"

	// KeyUserID is the signed-in user.
	KeyUserID Key = "user_id"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// EnvTab overrides the tab id.
const EnvTab = "PARLEY_TAB"

var (
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("session store closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown session backend")
)

// Store holds the values of one tab. Get returns "" for a missing or
// expired key.
type Store interface {
	Get(ctx context.Context, key Key) (string, error)
	Set(ctx context.Context, key Key, value string) error
	Delete(ctx context.Context, key Key) error
	Clear(ctx context.Context) error
	Close() error
}

// TabID identifies the current terminal: PARLEY_TAB when set, otherwise the
// parent process id (the shell).
func TabID() string {
	if tab := strings.TrimSpace(os.Getenv(EnvTab)); tab != "" {
		return tab
	}
	return "ppid-" + strconv.Itoa(os.Getppid())
}

// Open creates the store for backend. path and idle only apply to sqlite.
func Open(backend, path, tab string, idle time.Duration, log *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		return OpenSQLite(path, tab, idle, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[Key]string
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[Key]string)}
}

// Get returns the value for key.
func (m *MemoryStore) Get(_ context.Context, key Key) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	return m.values[key], nil
}

// Set stores value under key. An empty value deletes the key.
func (m *MemoryStore) Set(_ context.Context, key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if value == "" {
		delete(m.values, key)
		return nil
	}
	m.values[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

// Clear removes every key.
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values = make(map[Key]string)
	return nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
