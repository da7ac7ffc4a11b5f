// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrStorage  = errors.New("storage failure")
	ErrNotFound = errors.New("not found")

	// Training errors.
	ErrInsufficientData = errors.New("insufficient training data")
	ErrModelNotTrained  = errors.New("model not trained")

	// Event errors.
	ErrInvalidSource = errors.New("invalid event source")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRecoverable reports whether the error is a recoverable training-state
// condition rather than a storage fault. Recoverable errors are surfaced as
// user-facing messages; storage faults abort the operation.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrModelNotTrained)
}
