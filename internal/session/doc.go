// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session caches small per-terminal values that must survive
// between invocations but not forever: the active conversation id and the
// signed-in user id.
//
// A "tab" is one terminal. Every key is scoped to the tab id, so two shells
// keep separate conversations. Values in a tab expire together once the tab
// has been idle longer than the configured timeout.
//
// # Backends
//
//   - MemoryStore: process lifetime, used by the TUI and tests
//   - SQLiteStore: a small SQLite file shared by all tabs
//
// # Usage
//
//	store, err := session.Open(cfg.Session.Backend, cfg.Session.Path,
//	    session.TabID(), cfg.Session.IdleTimeout.Duration, log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	id, err := store.Get(ctx, session.KeyConversationID)
package session
