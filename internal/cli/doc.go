// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the parley command line and runs its commands.
//
// # Key Types
//
//   - Command: the commands parley knows
//   - Args: global flags plus the command's own arguments
//   - App: configuration, backend client and synchronizer for one run
//   - JSONResponse: the envelope every --json result is written in
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if err := cli.Execute(ctx, cmd, args); err != nil {
//	    cli.DisplayError(os.Stderr, args.Name, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
// Conversations:
//   - (none): full screen chat
//   - chat: line-mode chat
//   - ask: send one message
//   - history, show, rename, delete, new
//   - share, shared, export
//
// Projects:
//   - projects list|create|show|upload|instructions
//
// Account and setup:
//   - login, logout, whoami
//   - config show|get|set|path|keys
//   - version, help
//
// Every command accepts --json.
package cli
