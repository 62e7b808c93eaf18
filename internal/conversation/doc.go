// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation keeps the active conversation and the conversation
// roster in sync with the assistant backend.
//
// A Synchronizer moves through three phases:
//
//	Empty ──Send──▶ Pending ──id assigned──▶ Persisted
//	  ▲                                          │
//	  └──────────── StartNew / SignOut ──────────┘
//
// Send appends the user message immediately, makes exactly one backend
// call, and then applies the reply in a single critical section: the
// conversation id is adopted, the roster placeholder is replaced by the
// identified entry, and the assistant message is appended. Only one Send
// runs at a time; a second one returns ErrBusy without touching state.
//
// # Usage
//
//	sync, err := conversation.New(ctx, conversation.Deps{
//	    Backend: client,
//	    Session: store,
//	    UserID:  ident.UserID,
//	    Models:  cfg.Chat.Models,
//	})
//	msg, err := sync.Send(ctx, "hello", nil, model.ModeText)
//
// Hosts render Snapshot and may Subscribe to change notifications.
package conversation
