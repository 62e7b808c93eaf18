// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/parley/internal/conversation"
)

// stateMsg carries a synchronizer snapshot.
type stateMsg struct {
	state conversation.State
}

// sendDoneMsg reports the end of a send.
type sendDoneMsg struct {
	err error
}

// opDoneMsg reports the end of any other operation. notice is shown on
// success.
type opDoneMsg struct {
	notice string
	err    error
}
