package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/resilientmq/resilience"
)

// dialGuard governs establishing (or re-establishing) the underlying AMQP
// transport: throttling reconnect storms, tripping on repeated
// authentication failure, and retrying a failed attempt — all distinct
// from resilience.Resource, which retries calls made against a connection
// or channel that is already open.
//
// Where a generic pattern-composition pipeline would wrap one closure in
// a stack of independent middlewares, dialGuard drives the same four
// concerns from a single loop and reuses resilience.Policy/resilience.Stats
// for its backoff bookkeeping — the identical engine Resource uses for
// its own retries, rather than a second, parallel backoff
// implementation.
type dialGuard struct {
	rateLimiter *resilience.RateLimiter
	breaker     *resilience.CircuitBreaker
	policy      resilience.Policy
	attempt     *resilience.Timeout
}

func newDialGuard(rate resilience.RateLimiterConfig, breaker resilience.CircuitBreakerConfig, policy resilience.Policy, attemptTimeout time.Duration) *dialGuard {
	return &dialGuard{
		rateLimiter: resilience.NewRateLimiter(rate),
		breaker:     resilience.NewCircuitBreaker(breaker),
		policy:      policy,
		attempt:     resilience.NewTimeout(resilience.TimeoutConfig{Timeout: attemptTimeout}),
	}
}

// run throttles, gates, bounds, and retries op until it succeeds, the
// circuit trips, or the policy's attempt/duration budget is spent.
func (g *dialGuard) run(ctx context.Context, op func(context.Context) error) error {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	stats := resilience.NewStats(g.policy, time.Now())
	var lastErr error

	for {
		if err := g.breaker.Allow(); err != nil {
			return err
		}

		err := g.attempt.Execute(ctx, op)
		g.breaker.Record(err)
		if err == nil {
			return nil
		}
		lastErr = err

		if !g.policy.AllowsAttempts() {
			return lastErr
		}

		stats.IncrementAttempts()
		if stats.IsPolicyExceeded() {
			return fmt.Errorf("%w: %w", resilience.ErrPolicyExceeded, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stats.GetWaitTime()):
		}
	}
}
