package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/llm"
)

// Sentinel errors matchable with errors.Is.
var (
	ErrUnknownCapability      = errors.New("unknown capability")
	ErrMalformedModelResponse = llm.ErrMalformedResponse
	ErrCapabilityExecution    = dispatcher.ErrCapabilityExecution
	ErrModelUnavailable       = errors.New("model unavailable")
)

// Error codes reported to transports and run events.
const (
	CodeUnknownCapability   = "UNKNOWN_CAPABILITY"
	CodeMalformedResponse   = "MALFORMED_MODEL_RESPONSE"
	CodeCapabilityExecution = "CAPABILITY_EXECUTION_ERROR"
	CodeModelUnavailable    = "MODEL_UNAVAILABLE"
	CodeTimeout             = "TIMEOUT"
	CodeCancelled           = "CANCELLED"
	CodeInternal            = "INTERNAL_ERROR"
)

// UnknownCapabilityError reports a model request for a capability outside the catalog.
type UnknownCapabilityError struct {
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q", e.Name)
}

// Is matches ErrUnknownCapability.
func (e *UnknownCapabilityError) Is(target error) bool { return target == ErrUnknownCapability }

// MalformedResponseError reports a model response that is neither text nor a
// well-formed capability call.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed model response: " + e.Reason
}

// Is matches ErrMalformedModelResponse.
func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedModelResponse }

// ModelUnavailableError reports a model transport failure that survived retries.
type ModelUnavailableError struct {
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Cause)
}

// Unwrap returns the cause.
func (e *ModelUnavailableError) Unwrap() error { return e.Cause }

// Is matches ErrModelUnavailable.
func (e *ModelUnavailableError) Is(target error) bool { return target == ErrModelUnavailable }

// ErrorCode classifies a Run error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCapability):
		return CodeUnknownCapability
	case errors.Is(err, ErrMalformedModelResponse):
		return CodeMalformedResponse
	case errors.Is(err, ErrCapabilityExecution):
		return CodeCapabilityExecution
	case errors.Is(err, ErrModelUnavailable):
		return CodeModelUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	default:
		return CodeInternal
	}
}

// IsClientError reports whether err is a terminal contract failure of the run
// (unknown capability, malformed response, capability execution).
func IsClientError(err error) bool {
	switch ErrorCode(err) {
	case CodeUnknownCapability, CodeMalformedResponse, CodeCapabilityExecution:
		return true
	}
	return false
}

// IsRetryable reports whether a fresh request may succeed.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case CodeModelUnavailable, CodeTimeout:
		return true
	}
	return false
}

// Diagnostic returns a short caller-facing description of err. Capability
// causes are not included.
func Diagnostic(err error) string {
	var unknown *UnknownCapabilityError
	if errors.As(err, &unknown) {
		return fmt.Sprintf("The model requested an unknown capability: %s", unknown.Name)
	}
	var exec *dispatcher.ExecutionError
	if errors.As(err, &exec) {
		return fmt.Sprintf("Capability %s failed", exec.Capability)
	}
	switch ErrorCode(err) {
	case CodeMalformedResponse:
		return "The model returned a malformed response"
	case CodeModelUnavailable:
		return "The language model is unavailable"
	case CodeTimeout:
		return "The request timed out"
	case CodeCancelled:
		return "The request was cancelled"
	default:
		return "Internal error"
	}
}
