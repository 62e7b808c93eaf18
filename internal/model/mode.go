// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// Mode selects how a message is sent to the backend.
type Mode int

const (
	ModeText Mode = iota
	ModeImage
	ModeDocument
	ModeSearch
)

var modeNames = map[Mode]string{
	ModeText:     "text",
	ModeImage:    "image",
	ModeDocument: "document",
	ModeSearch:   "search",
}

// String returns the lowercase mode name.
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names returned by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeText, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeText, fmt.Errorf("unknown mode %q", s)
}

// ResolveMode picks the mode for a composed message. Search wins over
// attachments, attachments over image generation.
func ResolveMode(search, image, hasAttachments bool) Mode {
	switch {
	case search:
		return ModeSearch
	case hasAttachments:
		return ModeDocument
	case image:
		return ModeImage
	default:
		return ModeText
	}
}
