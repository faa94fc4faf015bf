package command

import (
	"errors"
	"fmt"
)

// Error is a programming error detected while configuring or scheduling
// commands. It is meant to abort configuration, not to drive control flow.
//
// A resource conflict with a non-interruptible owner is not an Error: the
// scheduler silently refuses the request.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Command names the offending command, when there is one.
	Command string
}

// ErrorCode categorizes command errors.
type ErrorCode string

const (
	// ErrCodeGroupedScheduled: a grouped command was scheduled directly.
	ErrCodeGroupedScheduled ErrorCode = "GROUPED_COMMAND_SCHEDULED_DIRECTLY"

	// ErrCodeAlreadyGrouped: a command was added to a second group.
	ErrCodeAlreadyGrouped ErrorCode = "ALREADY_GROUPED"

	// ErrCodeGroupRunning: a group was mutated between Initialize and End.
	ErrCodeGroupRunning ErrorCode = "GROUP_MUTATION_WHILE_RUNNING"

	// ErrCodeOverlapping: two children of a parallel group share a resource.
	ErrCodeOverlapping ErrorCode = "OVERLAPPING_REQUIREMENTS"

	// ErrCodeInvalidDefault: a default command does not require its
	// resource or reports finished.
	ErrCodeInvalidDefault ErrorCode = "INVALID_DEFAULT_COMMAND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s (command=%s)", e.Code, e.Message, e.Command)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, cmd Command, msg string) *Error {
	e := &Error{Code: code, Message: msg}
	if cmd != nil {
		e.Command = NameOf(cmd)
	}
	return e
}

// NewGroupedScheduledError reports a direct schedule of a grouped command.
func NewGroupedScheduledError(cmd Command) *Error {
	return newError(ErrCodeGroupedScheduled, cmd,
		"a command that is part of a group cannot be scheduled independently")
}

// NewInvalidDefaultError reports a rejected default command.
func NewInvalidDefaultError(cmd Command, reason string) *Error {
	return newError(ErrCodeInvalidDefault, cmd, reason)
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsGroupedScheduled reports a GROUPED_COMMAND_SCHEDULED_DIRECTLY error.
func IsGroupedScheduled(err error) bool { return HasCode(err, ErrCodeGroupedScheduled) }

// IsAlreadyGrouped reports an ALREADY_GROUPED error.
func IsAlreadyGrouped(err error) bool { return HasCode(err, ErrCodeAlreadyGrouped) }

// IsGroupRunning reports a GROUP_MUTATION_WHILE_RUNNING error.
func IsGroupRunning(err error) bool { return HasCode(err, ErrCodeGroupRunning) }

// IsOverlapping reports an OVERLAPPING_REQUIREMENTS error.
func IsOverlapping(err error) bool { return HasCode(err, ErrCodeOverlapping) }

// IsInvalidDefault reports an INVALID_DEFAULT_COMMAND error.
func IsInvalidDefault(err error) bool { return HasCode(err, ErrCodeInvalidDefault) }
