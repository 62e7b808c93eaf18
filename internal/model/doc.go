// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by parley's packages.
//
// # Key Types
//
//   - Conversation: the active chat thread, identified by the backend once
//     the first exchange succeeds (empty ID until then)
//   - Message: one immutable user or assistant message, optionally carrying
//     attachment names, a generated image reference or search sources
//   - RosterEntry / Roster: the sidebar list of the user's conversations,
//     including the empty-ID placeholder for the unsaved conversation
//   - Turn: a backend message record holding a user and/or assistant half
//   - Mode: how a message is sent (text, image, document, search)
//   - Project / Document: project-scoped knowledge bases
//   - Attachment: a file loaded into memory for upload
//
// # Usage
//
//	conv := model.NewConversation("gpt-4o")
//	conv.Title = model.DeriveTitle(text)
//	conv.Append(model.NewUserMessage(text, nil))
//	roster = roster.WithPlaceholder(conv.Entry())
package model
