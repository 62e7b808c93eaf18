// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth supplies bearer tokens and the signed-in identity.
//
// parley does not run an interactive sign-in flow. The token is issued by
// the organisation's identity provider and handed to parley either through
// PARLEY_TOKEN or a token file written by `parley login` (or by an external
// helper named in auth.refresh_command).
//
// # Key Types
//
//   - TokenSource: what the API client needs, a current token and a way
//     to get a fresh one after a 401
//   - StaticSource: a fixed token from the environment
//   - FileSource: a token file, re-read when it changes on disk
//   - Identity: the user id and display claims read from the token
package auth
