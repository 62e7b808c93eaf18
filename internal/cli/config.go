// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - "parley config".
//
// Subcommands:
//
//	show              effective configuration (file, .env and environment)
//	get KEY           one value, e.g. api.base_url
//	set KEY VALUE     change the config file; lists are comma separated
//	path              config file location
//	keys              every settable key
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/parley/internal/config"
)

func (a *App) runConfig(args Args) error {
	p := NewArgParser(args.Rest)
	switch strings.ToLower(p.Subcommand()) {
	case "", "show":
		return a.emit(args, a.cfg, func(w io.Writer) error {
			_, err := io.WriteString(w, a.cfg.String())
			return err
		})

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "parley config get api.base_url")
		}
		v, err := a.cfg.Get(key)
		if err != nil {
			return NewValidationError("key", key, err.Error())
		}
		return a.emit(args, map[string]any{key: v}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, formatValue(v))
			return err
		})

	case "set":
		key, value := p.Positional(1), p.JoinFrom(2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "parley config set chat.default_model gpt-4o")
		}
		if err := setConfigValue(a.cfgPath, key, value); err != nil {
			return err
		}
		a.notice(args, "%s %s in %s", SuccessStyle.Render("Set"), key, a.cfgPath)
		return nil

	case "path":
		return a.emit(args, map[string]string{"path": a.cfgPath}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, a.cfgPath)
			return err
		})

	case "keys":
		keys := config.Keys()
		return a.emit(args, keys, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, strings.Join(keys, "\n"))
			return err
		})

	default:
		return fmt.Errorf("%w: config %s", ErrUnknownCommand, p.Subcommand())
	}
}

// setConfigValue changes one key in the file at path. Only values from
// the file are written back, never environment overrides or resolved
// defaults. The result must still validate.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if err := config.LoadTOML(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationError("value", value, err.Error())
	}

	check := cfg.Clone()
	if err := check.SetDefaults(); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	if err := check.Validate(); err != nil {
		return NewValidationError(key, value, err.Error())
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	return nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}
