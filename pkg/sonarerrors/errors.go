// Package sonarerrors provides the structured error classification used
// throughout the agent: every error that crosses a component boundary (probe,
// producer, sink, config) carries a Code so the scheduler and daemon can
// decide whether it is fatal, retryable, or surfaced as an error envelope.
package sonarerrors

import "fmt"

// ErrorCode classifies a StructuredError into one of the six kinds the agent
// distinguishes between.
type ErrorCode string

const (
	// ErrCodeConfig indicates the configuration file failed to parse or
	// validate. Fatal: the daemon must not start.
	ErrCodeConfig ErrorCode = "CONFIG"
	// ErrCodePlatform indicates a failure reading OS-level state (/proc,
	// cgroups, hostname resolution). Surfaced as an error envelope for the
	// firing that hit it; the probe continues on its next cadence.
	ErrCodePlatform ErrorCode = "PLATFORM"
	// ErrCodeAccelerator indicates a failure talking to a vendor SMI shim.
	// Surfaced as an error envelope; other accelerators are unaffected.
	ErrCodeAccelerator ErrorCode = "ACCELERATOR"
	// ErrCodeResourceManager indicates a failure querying Slurm (or another
	// resource manager) for job/partition state.
	ErrCodeResourceManager ErrorCode = "RESOURCE_MANAGER"
	// ErrCodeSink indicates a failure delivering an envelope to a sink.
	// Retryable per the sink's own backoff policy.
	ErrCodeSink ErrorCode = "SINK"
	// ErrCodePanic indicates a probe or producer panicked; the scheduler
	// recovers the panic and logs it as a failed firing instead of crashing
	// the daemon. No error envelope is written for it.
	ErrCodePanic ErrorCode = "PANIC"
)

// StructuredError pairs a classification code with a human-readable message,
// an optional underlying cause, and free-form debugging context.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether this error class should abort daemon startup rather
// than be surfaced as an error envelope.
func (e *StructuredError) Fatal() bool {
	return e.Code == ErrCodeConfig
}

// New creates a StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message}
}

// NewWithContext creates a StructuredError carrying debugging context.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{Code: code, Message: message, Context: context}
}

// Wrap attaches a classification code and message to an existing error.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause}
}

// WrapWithContext wraps an error with both a cause and debugging context.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause, Context: context}
}
