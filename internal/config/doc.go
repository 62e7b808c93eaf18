// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates parley's configuration.
//
// # Load Order
//
//  1. Built-in defaults (Default)
//  2. ~/.parley/config.toml, or the file named by PARLEY_CONFIG
//  3. .env in the working directory (never overrides variables already set)
//  4. PARLEY_* environment variables (ApplyEnvOverrides)
//  5. SetDefaults for zero values, then Validate
//
// # Keys
//
// Values are addressed with dot keys that follow the TOML layout, for
// example "api.base_url" or "chat.roster_page_size". Get and Set accept
// these keys; list values are written comma separated.
//
// # Environment
//
//   - PARLEY_HOME: overrides the ~/.parley directory
//   - PARLEY_API_URL: api.base_url
//   - PARLEY_MODEL: chat.default_model
//   - PARLEY_TOKEN_FILE: auth.token_file
//   - PARLEY_SESSION_BACKEND: session.backend
//   - PARLEY_LOG_LEVEL: log.level
package config
