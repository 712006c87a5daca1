package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the service recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of failures before opening the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long to wait before attempting recovery.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is how many consecutive successful probes a
	// half-open circuit requires before it closes again. A single failed
	// probe reopens it regardless of how many prior probes succeeded.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool
}

// CircuitBreaker implements the circuit breaker pattern: it gates calls
// with Allow and learns the outcome through Record, so a caller that
// already has its own execution path (a dial loop, a retry loop) doesn't
// need to hand the breaker a closure just to drive it.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failures        int
	halfOpenSuccess int
	openedAt        time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{config: config}
}

// Allow reports whether a call may proceed, transitioning an open circuit
// to half-open once ResetTimeout has elapsed. Call Record with the
// outcome of every call Allow admitted.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.settleLocked() == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

// Record reports the outcome of a call previously admitted by Allow.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	before := cb.settleLocked()
	failed := cb.config.IsFailure(err)

	switch before {
	case StateHalfOpen:
		if failed {
			cb.tripLocked(before)
		} else {
			cb.halfOpenSuccess++
			if cb.halfOpenSuccess >= cb.config.HalfOpenMaxRequests {
				cb.closeLocked(before)
			}
		}
	default: // StateClosed; an admitted call can't have observed StateOpen
		if failed {
			cb.failures++
			if cb.failures >= cb.config.MaxFailures {
				cb.tripLocked(before)
			}
		} else {
			cb.failures = 0
		}
	}
}

// Execute is a convenience wrapper combining Allow, op, and Record for
// callers that don't need to split gating from execution.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := op(ctx)
	cb.Record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.settleLocked()
}

// Reset forces the circuit back to closed, regardless of its current
// state or accumulated failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.closeLocked(cb.state)
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		State:    cb.settleLocked(),
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State    State
	Failures int
	OpenedAt time.Time
}

// settleLocked applies the open-to-half-open timeout transition and
// returns the resulting state. Callers must hold cb.mu.
func (cb *CircuitBreaker) settleLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenSuccess = 0
		cb.notify(StateOpen, StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) tripLocked(from State) {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.halfOpenSuccess = 0
	cb.notify(from, StateOpen)
}

func (cb *CircuitBreaker) closeLocked(from State) {
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenSuccess = 0
	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.config.OnStateChange != nil && from != to {
		cb.config.OnStateChange(from, to)
	}
}
