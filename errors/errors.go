// Package errors provides the structured error taxonomy shared by the
// timeout engine, the pipeline registry, and the strategy implementations.
// Errors carry a machine-readable code, optional details, and a cause chain
// compatible with the standard errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// AppError is the unified error type for the module.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// TimeoutRejected creates the error raised when the resolved timeout
// elapses before the wrapped operation completes.
func TimeoutRejected(timeout time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("operation did not complete within %s", timeout),
		Retryable: true,
		Details:   map[string]any{"timeout": timeout},
	}
}

// InvalidConfig creates the error raised at policy-construction time for
// invalid options. It is never raised during execution.
func InvalidConfig(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: reason,
		Retryable: false,
	}
}

// KeyNotFound creates the error raised when a registry lookup finds
// neither a cached pipeline nor a registered builder.
func KeyNotFound(key string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("no pipeline or builder registered for key %q", key),
		Retryable: false,
		Details:   map[string]any{"key": key},
	}
}

// RegistryDisposed creates the error raised by every registry and handle
// operation after the registry has been disposed.
func RegistryDisposed() *AppError {
	return &AppError{
		Code: ErrCodeDisposed, Message: "registry has been disposed",
		Retryable: false,
	}
}

// Internal creates an AppError for an unexpected internal failure.
func Internal(message string) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: message,
		Retryable: false,
	}
}

// --- Predicates ---

// CodeOf returns the error code of err, or empty string if err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsTimeoutRejected reports whether err is a timeout rejection.
func IsTimeoutRejected(err error) bool {
	return IsCode(err, ErrCodeTimeout)
}

// IsNotFound reports whether err is a registry key-not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsDisposed reports whether err is a registry-disposed error.
func IsDisposed(err error) bool {
	return IsCode(err, ErrCodeDisposed)
}

// IsInvalidConfig reports whether err is a configuration error.
func IsInvalidConfig(err error) bool {
	return IsCode(err, ErrCodeInvalidConfig)
}

// RejectedTimeout extracts the resolved timeout from a timeout rejection.
func RejectedTimeout(err error) (time.Duration, bool) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Code != ErrCodeTimeout {
		return 0, false
	}
	d, ok := appErr.Details["timeout"].(time.Duration)
	return d, ok
}
