// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat screen.
//
// The screen is a Bubble Tea model driving a conversation synchronizer:
// the text input sends messages or runs slash commands, the conversation
// list shows the roster, and every synchronizer change arrives as a
// snapshot through Subscribe.
//
// # Key Types
//
//   - Model: the Bubble Tea model
//   - Conversation: the synchronizer methods the screen uses
//   - KeyMap: keyboard bindings, also used for the help view
package chat
