// Package resilience provides resilience patterns for a message-broker
// client.
//
// It implements the retry/recovery engine that lets application code treat
// a broker connection or channel as if it "stays alive" across transient
// failures, plus a set of general-purpose reliability patterns reused by
// the broker package to guard the dial pipeline and bound publish
// concurrency.
//
// # Ecosystem Position
//
// resilience sits between the broker façade and the wire:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                    Broker Resilience Flow                       │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│   broker             resilience             amqp091             │
//	│   ┌──────┐         ┌───────────┐           ┌─────────┐         │
//	│   │ Conn/│────────▶│ Resource  │──────────▶│ Channel │         │
//	│   │ Chan │         │  (retry)  │           │  /Conn  │         │
//	│   └──────┘         └───────────┘           └─────────┘         │
//	│        ▲                                                        │
//	│        │ dial/reconnect             ┌───────────┐               │
//	│        └───────────────────────────▶│ dialGuard │               │
//	│                                     │ (broker)  │               │
//	│                                     │ ┌───────┐ │               │
//	│                                     │ │RateLim│ │               │
//	│                                     │ ├───────┤ │               │
//	│                                     │ │Circuit│ │ (auth gate)   │
//	│                                     │ ├───────┤ │               │
//	│                                     │ │Policy │ │ (shared with  │
//	│                                     │ │/Stats │ │  Resource)    │
//	│                                     │ ├───────┤ │               │
//	│                                     │ │Timeout│ │               │
//	│                                     │ └───────┘ │               │
//	│                                     └───────────┘               │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # One Retry Engine
//
// Earlier revisions of this package carried two separate retry mechanisms:
// [Resource]'s own attempt/backoff bookkeeping for per-operation calls, and
// a second, general-purpose Retry/Executor composition pattern for the dial
// pipeline. The dial pipeline now reuses [Policy] and [Stats] directly —
// the broker package's dialGuard type drives rate limiting, circuit
// breaking, and a per-attempt [Timeout] around the same attempt-counting
// and backoff-delay bookkeeping [Resource] uses for its own retries,
// rather than maintaining a parallel implementation of the same idea.
//
//   - [Resource] wraps individual calls made against an already-open
//     channel or connection (publish, declare, bind), arbitrates with a
//     [Gate] while a supervisor rebuilds the transport, and drives topology
//     recovery once a fresh channel is available.
//
//   - The dial pipeline (broker.dialGuard) governs the coarser-grained job
//     of establishing or re-establishing the underlying transport itself:
//     throttling reconnect storms, tripping on repeated authentication
//     failures, and retrying a failed dial attempt using the same [Policy]
//     a Resource would use.
//
// # Resilience Patterns
//
// The package provides the retryable-resource core plus four general
// patterns consumed by broker:
//
//   - [Policy], [Stats], [Gate], [Waiter], [Resource]: the retryable
//     resource engine (see above), and the attempt/backoff bookkeeping the
//     dial pipeline reuses.
//
//   - [CircuitBreaker]: Prevents cascading failures by stopping requests to
//     failing services after a threshold is reached. Transitions through
//     Closed → Open → HalfOpen states, gated via the split [CircuitBreaker.Allow]
//     / [CircuitBreaker.Record] pair (or the [CircuitBreaker.Execute]
//     convenience wrapper). Used here to gate repeated authentication
//     failures during dial.
//
//   - [RateLimiter]: Token bucket rate limiting. Throttles reconnect
//     attempts so a flapping broker doesn't trigger a redial storm.
//
//   - [Bulkhead]: Semaphore-based concurrency limiting. Bounds concurrent
//     publishes on a channel.
//
//   - [Timeout]: Context-based timeout for a single dial attempt.
//
// # Quick Start
//
//	// The retryable-resource engine, wrapping one operation:
//	res := resilience.NewResource(policy, capability, classify, supervisorToken, logger)
//	val, err := res.Invoke(ctx, func(ctx context.Context) (any, error) {
//	    return nil, ch.Publish(exchange, key, false, false, msg)
//	}, resilience.InvokeOptions{Recoverable: true, LogFailures: true})
//
//	// Gating a call site directly, without handing the breaker a closure:
//	if err := breaker.Allow(); err != nil {
//	    return err
//	}
//	err := dialOnce(ctx)
//	breaker.Record(err)
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//
//   - [Resource]: Invoke, Close, AddShutdownListener are all safe to call
//     from multiple goroutines at once
//   - [Gate]: Close, Open, Await, InterruptWaiters are mutex-protected
//   - [Stats]: all accessors are mutex-protected
//   - [CircuitBreaker]: Allow(), Record(), Execute(), State() are
//     mutex-protected; Reset() is safe
//   - [RateLimiter]: Allow(), AllowN(), Wait(), Execute() are mutex-protected
//   - [Bulkhead]: Acquire(), Release(), Execute(), Metrics() use a
//     channel-based semaphore and atomic counters, not a mutex
//   - [Timeout]: Execute() is stateless and safe for concurrent use
//
// # Error Handling
//
// Resource always surfaces the caller operation's own error — bookkeeping
// failures inside Gate, Stats, or Waiter are swallowed rather than masking
// it, except for the two terminal conditions Resource itself detects, which
// wrap the caller's last error behind a sentinel (use errors.Is for
// checking, errors.Unwrap to reach the wrapped cause):
//
//   - [ErrResourceClosed]: the operation failed after the resource had
//     already closed (a call woken from a gate wait by Close gets the
//     operation's own error instead)
//   - [ErrPolicyExceeded]: the retry budget was spent before success
//
// The dial pipeline reuses [ErrPolicyExceeded] for its own retry-budget
// exhaustion, wrapping the last dial error the same way. The remaining
// dial-side patterns return their own sentinels:
//
//   - [ErrCircuitOpen]: Circuit breaker is in open state, rejecting requests
//   - [ErrRateLimitExceeded]: Rate limit exceeded and no wait configured
//   - [ErrBulkheadFull]: Bulkhead at maximum concurrency
//   - [ErrTimeout]: Operation exceeded configured timeout
//
// # Callbacks and Observability
//
// Patterns support callbacks for observability integration:
//
//   - CircuitBreakerConfig.OnStateChange: Called on state transitions
//   - CircuitBreakerConfig.IsFailure: Custom failure classification
//
// # Integration
//
// resilience is consumed by the broker and topology packages: broker wires
// Resource around every channel/connection operation and a dialGuard
// around dial. Resource reports failed attempts through the
// [ResourceLogger] passed in at construction; circuit transitions are not
// logged.
package resilience
