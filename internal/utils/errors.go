package utils

import "fmt"

// ContextError represents a low-level error with an added context frame.
// Unwrap exposes the cause so errors.As/errors.Is still reach it. The public
// error taxonomy (internal/errs) does not build on this type; it defines its
// own Unwrap-able error structs.
type ContextError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error, or nil if cause is nil.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ContextError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *ContextError) Unwrap() error {
	return e.Cause
}
