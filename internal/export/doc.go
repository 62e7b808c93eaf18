// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to files.
//
// # Supported Formats
//
//   - Markdown: YAML front matter followed by the transcript
//   - JSON: the conversation as stored, for re-import or scripting
//   - HTML: a standalone page with message content rendered from markdown
//
// # Usage
//
//	e, err := export.ForFormat("markdown", nil)
//	path, err := export.ToFile(viewer.FromConversation(conv), e, opts)
package export
