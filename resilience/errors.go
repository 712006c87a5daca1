package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrResourceClosed is returned by a Resource-wrapped call made after
	// Close has already completed.
	ErrResourceClosed = errors.New("resilience: resource is closed")

	// ErrPolicyExceeded is returned when a retry invocation exhausts its
	// Policy's attempt or duration budget without the caller operation
	// ever succeeding. It wraps the operation's last error.
	ErrPolicyExceeded = errors.New("resilience: retry policy exceeded")
)
