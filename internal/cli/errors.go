// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/project"
	"github.com/jeranaias/parley/internal/viewer"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeout      = 8
)

// ErrUnknownCommand is returned for a command or subcommand parley does not
// have.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument reports a required argument with its usage line.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "required",
		Example: usage,
	}
}

// ErrUnsupportedFormat reports an export format parley cannot write.
func ErrUnsupportedFormat(format string, supported []string) error {
	return &ValidationError{
		Field:  "format",
		Value:  format,
		Reason: "must be one of " + strings.Join(supported, ", "),
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// Hint returns a suggestion for the user to act on, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, conversation.ErrSignedOut):
		return "Run 'parley login' to sign in."
	case errors.Is(err, conversation.ErrSearchUnavailable):
		return "Web search needs a search-capable model outside a project (parley ask --model gpt-4o --search ...)."
	case errors.Is(err, conversation.ErrUnknownModel):
		return "Run 'parley config get chat.models' to see the selectable models."
	case errors.Is(err, attach.ErrUnsupportedType), errors.Is(err, attach.ErrTooLarge):
		return "Allowed uploads are set by attachments.extensions and attachments.max_size_mb."
	case errors.Is(err, api.ErrRateLimited):
		return "Wait a moment and try again."
	case errors.Is(err, api.ErrServer):
		return "The backend failed; try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return "The backend did not answer in time; raise api.timeout if this persists."
	case errors.Is(err, ErrUnknownCommand):
		return "Run 'parley help' for usage."
	}
	return ""
}

// DisplayError writes err, and a hint when one applies, to w. In JSON mode
// the error is written as a JSONResponse instead.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
	if hint := Hint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

// GetExitCode maps err onto an exit code.
func GetExitCode(err error) int {
	var validation *ValidationError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &validation),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrEmptyTitle),
		errors.Is(err, conversation.ErrEmptyID),
		errors.Is(err, conversation.ErrModeConflict),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, project.ErrNameRequired),
		errors.Is(err, project.ErrGoalRequired),
		errors.Is(err, viewer.ErrEmptyShareID):
		return ExitUsageError
	case errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, api.ErrForbidden),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingClaim),
		errors.Is(err, conversation.ErrSignedOut):
		return ExitAuthError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, api.ErrServer),
		errors.Is(err, api.ErrRateLimited),
		errors.Is(err, api.ErrMalformedResponse):
		return ExitNetworkError
	case errors.Is(err, errConfig):
		return ExitConfigError
	}
	return ExitGeneralError
}

// errConfig marks configuration failures for GetExitCode.
var errConfig = errors.New("configuration error")
