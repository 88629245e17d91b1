package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrEmptyMessage    = errors.New("message text is empty")
)

// CapabilityError marks a failure of the text-generation capability: the
// backend was unreachable, rate limited, timed out or returned unusable output.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError wraps err as a capability failure of operation op.
func NewCapabilityError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CapabilityError{Op: op, Err: err}
}

// IsCapabilityError returns true if err (or anything it wraps) is a CapabilityError.
func IsCapabilityError(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}
