package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Execution errors
const (
	// ErrCodeTimeout indicates the resolved timeout elapsed before the
	// operation completed.
	ErrCodeTimeout ErrorCode = "TIMEOUT_REJECTED"
	// ErrCodeCancelled indicates the caller's own cancellation fired.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeCircuitOpen indicates a circuit breaker rejected the call.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeBulkheadFull indicates no bulkhead slot was available.
	ErrCodeBulkheadFull ErrorCode = "BULKHEAD_FULL"
	// ErrCodeRateLimited indicates the call exceeded the permitted rate.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates a policy was built from invalid options.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Registry errors
const (
	// ErrCodeNotFound indicates no pipeline or builder is registered for a key.
	ErrCodeNotFound ErrorCode = "KEY_NOT_FOUND"
	// ErrCodeDisposed indicates an operation on a disposed registry or handle.
	ErrCodeDisposed ErrorCode = "REGISTRY_DISPOSED"
	// ErrCodeAlreadyExists indicates a builder is already registered for a key.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:      true,
	ErrCodeCircuitOpen:  true,
	ErrCodeBulkheadFull: true,
	ErrCodeRateLimited:  true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
