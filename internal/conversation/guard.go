// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import "sync/atomic"

// slot admits one holder at a time and rejects the rest without waiting.
type slot struct {
	held atomic.Bool
}

// tryAcquire takes the slot, reporting false when it is already held.
func (s *slot) tryAcquire() bool {
	return s.held.CompareAndSwap(false, true)
}

// release frees the slot.
func (s *slot) release() {
	s.held.Store(false)
}

// busy reports whether the slot is held.
func (s *slot) busy() bool {
	return s.held.Load()
}
