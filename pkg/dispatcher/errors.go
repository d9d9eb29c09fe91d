package dispatcher

import (
	"errors"
	"fmt"
)

// ErrCapabilityExecution matches every *ExecutionError via errors.Is.
var ErrCapabilityExecution = errors.New("capability execution failed")

// ExecutionError reports that a capability failed: its arguments were rejected
// or the backend raised.
type ExecutionError struct {
	Capability string
	Cause      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Cause)
}

// Unwrap returns the cause.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// Is matches ErrCapabilityExecution.
func (e *ExecutionError) Is(target error) bool { return target == ErrCapabilityExecution }
