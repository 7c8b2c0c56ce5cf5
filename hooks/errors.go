// Package hooks routes intercepted host procedure calls to substitute
// behavior: a registry mapping procedure identifiers to native handlers or VM
// programs, the dispatcher invoked by the host's redirected call path, and
// the fanout side channels for runtime errors and per-instruction tracing.
package hooks

import "fmt"

// Registration failure taxonomy. These are returned synchronously to the
// caller of a registration API and never cross the host boundary.
var (
	ErrNotInitialized = fmt.Errorf("hooks: subsystem not initialized")
	ErrProcNotFound   = fmt.Errorf("hooks: proc not found")
	ErrAlreadyHooked  = fmt.Errorf("hooks: proc is already hooked")
	ErrUnknownFailure = fmt.Errorf("hooks: unknown failure")
)

// RuntimeError is a structured failure produced by a native hook body. The
// dispatcher recovers it locally: the message goes to the host's diagnostic
// facility and the call site sees a null result, never a fault.
type RuntimeError struct {
	Message string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return e.Message
}

// Runtimef builds a RuntimeError from a format string.
func Runtimef(format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}
