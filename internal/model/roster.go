// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// RosterEntry is one row of the conversation list. An entry with an empty
// ID is the placeholder for the conversation that has not been saved yet.
type RosterEntry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
	Model        string    `json:"model,omitempty"`
	MessageCount int       `json:"message_count,omitempty"`
}

// Placeholder reports whether the entry stands for an unsaved conversation.
func (e RosterEntry) Placeholder() bool {
	return e.ID == ""
}

// Roster is the ordered conversation list, most recent first. Methods never
// modify the receiver; they return a new slice.
//
// A well-formed roster holds at most one placeholder and never two entries
// with the same non-empty ID.
type Roster []RosterEntry

// Find returns the entry with the given non-empty ID.
func (r Roster) Find(id string) (RosterEntry, bool) {
	if id == "" {
		return RosterEntry{}, false
	}
	for _, e := range r {
		if e.ID == id {
			return e, true
		}
	}
	return RosterEntry{}, false
}

// HasPlaceholder reports whether an unsaved entry is present.
func (r Roster) HasPlaceholder() bool {
	for _, e := range r {
		if e.Placeholder() {
			return true
		}
	}
	return false
}

// WithPlaceholder puts entry (which must have an empty ID) at the front,
// replacing any existing placeholder.
func (r Roster) WithPlaceholder(entry RosterEntry) Roster {
	entry.ID = ""
	out := make(Roster, 0, len(r)+1)
	out = append(out, entry)
	return append(out, r.WithoutPlaceholder()...)
}

// WithoutPlaceholder drops every entry with an empty ID.
func (r Roster) WithoutPlaceholder() Roster {
	out := make(Roster, 0, len(r))
	for _, e := range r {
		if !e.Placeholder() {
			out = append(out, e)
		}
	}
	return out
}

// Without drops the entry with the given ID.
func (r Roster) Without(id string) Roster {
	out := make(Roster, 0, len(r))
	for _, e := range r {
		if e.ID != id || id == "" {
			out = append(out, e)
		}
	}
	return out
}

// Reconcile records that entry's conversation now has an ID. Placeholders
// are dropped; the entry is then merged into an existing row with the same
// ID, or inserted at the front. When entry has no ID yet the result keeps
// it as the placeholder at the front.
func (r Roster) Reconcile(entry RosterEntry) Roster {
	if entry.Placeholder() {
		return r.WithPlaceholder(entry)
	}
	out := r.WithoutPlaceholder()
	for i, e := range out {
		if e.ID == entry.ID {
			out[i] = e.merge(entry)
			return out
		}
	}
	return append(Roster{entry}, out...)
}

// Renamed returns a copy with the title of id replaced.
func (r Roster) Renamed(id, title string) Roster {
	out := r.Clone()
	for i := range out {
		if out[i].ID == id && id != "" {
			out[i].Title = title
		}
	}
	return out
}

// Dedupe drops placeholders and repeated IDs, keeping the first occurrence.
func (r Roster) Dedupe() Roster {
	seen := make(map[string]struct{}, len(r))
	out := make(Roster, 0, len(r))
	for _, e := range r {
		if e.Placeholder() {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Clone returns a copy of the roster.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	return append(Roster(nil), r...)
}

// merge keeps the backend's title and creation time for an existing row
// and takes the newer activity fields from the local conversation.
func (e RosterEntry) merge(local RosterEntry) RosterEntry {
	if e.Title == "" {
		e.Title = local.Title
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = local.CreatedAt
	}
	if local.UpdatedAt.After(e.UpdatedAt) {
		e.UpdatedAt = local.UpdatedAt
	}
	if local.Model != "" {
		e.Model = local.Model
	}
	if local.MessageCount > e.MessageCount {
		e.MessageCount = local.MessageCount
	}
	return e
}
