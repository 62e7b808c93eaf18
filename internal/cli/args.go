// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// booleanFlags never take a value, so "--json ID" leaves ID positional.
var booleanFlags = map[string]bool{
	"json":      true,
	"image":     true,
	"search":    true,
	"quiet":     true,
	"q":         true,
	"verbose":   true,
	"v":         true,
	"help":      true,
	"h":         true,
	"stdin":     true,
	"no-meta":   true,
	"new":       true,
	"shared":    true,
	"all":       true,
	"no-verify": true,
}

// flagAliases maps short flags to their long names.
var flagAliases = map[string]string{
	"f": "file",
	"m": "model",
	"p": "project",
	"o": "out",
	"q": "quiet",
	"v": "verbose",
	"h": "help",
	"n": "name",
}

// ArgParser splits command arguments into flags and positionals.
//
// Supported forms:
//
//	--flag value     long flag with a value
//	--flag=value     long flag with equals sign
//	-f value         short flag (see flagAliases)
//	--json           boolean flag
//	--               everything after is positional
//
// A flag given more than once keeps every value (see Flags).
type ArgParser struct {
	flags      map[string][]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw.
//
//	p := NewArgParser([]string{"create", "--name", "Docs", "--json"})
//	p.Subcommand()     // "create"
//	p.Flag("name")     // "Docs"
//	p.BoolFlag("json") // true
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string][]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			k = canonicalFlag(k)
			if booleanFlags[k] {
				b, err := ParseBoolString(v)
				p.boolFlags[k] = err == nil && b
			} else {
				p.flags[k] = append(p.flags[k], v)
			}
			continue
		}

		name = canonicalFlag(name)
		if !booleanFlags[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = append(p.flags[name], raw[i+1])
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

func canonicalFlag(name string) string {
	if long, ok := flagAliases[name]; ok {
		return long
	}
	return name
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the last value given for name, or "".
func (p *ArgParser) Flag(name string) string {
	vals := p.flags[canonicalFlag(name)]
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

// Flags returns every value given for name, in order.
func (p *ArgParser) Flags(name string) []string {
	return append([]string(nil), p.flags[canonicalFlag(name)]...)
}

// FlagOrDefault returns the flag value, or def when it is absent.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// FlagIntOrDefault parses the flag as a positive integer. A missing flag
// returns def; an invalid one returns an error.
func (p *ArgParser) FlagIntOrDefault(name string, def int) (int, error) {
	v := p.Flag(name)
	if v == "" {
		return def, nil
	}
	return ParseIntWithValidation(v, name)
}

// BoolFlag reports whether a boolean flag was set. A value flag given
// without a value also counts as set.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[canonicalFlag(name)]
}

// HasFlag reports whether name was given in any form.
func (p *ArgParser) HasFlag(name string) bool {
	name = canonicalFlag(name)
	_, ok := p.flags[name]
	return ok || p.boolFlags[name]
}

// Positional returns positional argument index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positionals starting at index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positionals.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// JoinFrom joins the positionals from index with spaces.
func (p *ArgParser) JoinFrom(index int) string {
	return strings.TrimSpace(strings.Join(p.PositionalFrom(index), " "))
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// ParseIntWithValidation parses s as a positive integer.
func ParseIntWithValidation(s, fieldName string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewValidationError(fieldName, s, "must be a number")
	}
	if n < 1 {
		return 0, NewValidationError(fieldName, s, "must be at least 1")
	}
	return n, nil
}

// ParseBoolString accepts the usual spellings of true and false.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
