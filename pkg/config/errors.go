package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison using errors.Is()
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
)

// Error provides structured information about a configuration failure
type Error struct {
	Op      string // Operation that failed (e.g., "Config.Validate")
	Field   string // Offending setting, when known
	Message string // Human-readable message
	Err     error  // Underlying sentinel
}

// Error returns the string representation of the error
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "configuration error"
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(op, field, format string, args ...interface{}) *Error {
	return &Error{Op: op, Field: field, Message: fmt.Sprintf(format, args...), Err: ErrInvalidConfiguration}
}

func missing(op, field, message string) *Error {
	return &Error{Op: op, Field: field, Message: message, Err: ErrMissingConfiguration}
}
