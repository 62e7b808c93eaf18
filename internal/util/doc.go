// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by parley's packages: crash-safe
// file writes for tokens, config and exports, and terminal-width-aware
// string truncation for roster titles and previews.
package util
