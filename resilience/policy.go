package resilience

import "time"

// Policy is an immutable description of a retry/recovery budget: how many
// attempts to make, how long to keep trying, how the wait between attempts
// grows, and whether authentication failures are worth retrying at all.
//
// The zero value is a legal policy. It sets no attempt limit and no
// duration limit, so AllowsAttempts reports true: an all-defaults policy
// allows retries indefinitely in the attempt dimension, relying on the
// caller's context (or an explicit MaxDuration) to eventually bound it.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Zero means unbounded.
	MaxAttempts int

	// MaxDuration is the maximum wall-clock time a single invocation may
	// spend retrying. Zero means unbounded.
	MaxDuration time.Duration

	// Interval is the base wait between the first and second attempts.
	Interval time.Duration

	// BackoffFactor multiplies Interval after every attempt. Values below
	// 1 are treated as 1 (no growth).
	BackoffFactor float64

	// MaxInterval caps the grown interval. Zero means uncapped.
	MaxInterval time.Duration

	// RetryAuthenticationException opts authentication failures into the
	// retry set. Defaults to false: a bad credential is assumed to stay
	// bad until something external fixes it.
	RetryAuthenticationException bool
}

// AllowsAttempts reports whether this policy permits retrying at all. Only
// a policy explicitly configured with MaxAttempts == 1 refuses every
// retry; everything else, including the zero value, allows attempts.
func (p Policy) AllowsAttempts() bool {
	return p.MaxAttempts != 1
}

// RetryAuthenticationExceptions reports whether authentication failures
// should be treated as retryable. Named as a plural accessor to read
// naturally at call sites; mirrors the RetryAuthenticationException field.
func (p Policy) RetryAuthenticationExceptions() bool {
	return p.RetryAuthenticationException
}

// effectiveBackoffFactor returns the backoff factor used for interval
// growth, normalizing factors below 1 (which would shrink or freeze the
// interval in an unintended way) up to 1.
func (p Policy) effectiveBackoffFactor() float64 {
	if p.BackoffFactor < 1 {
		return 1
	}
	return p.BackoffFactor
}
