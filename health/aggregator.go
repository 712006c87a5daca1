package health

import (
	"context"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// Parallel runs health checks in parallel when true.
	// Default: true
	Parallel bool
}

type registration struct {
	checker  Checker
	critical bool
}

// Aggregator combines multiple health checkers into a single composite
// check. Checkers are registered as either critical or non-critical: a
// failing critical checker (the broker connection itself, say) drags the
// whole aggregate to unhealthy, while a failing non-critical checker (a
// secondary mirror, a metrics sink) only degrades it. Without this
// distinction a single optional dependency flapping would report the
// entire broker client as down.
type Aggregator struct {
	config AggregatorConfig
	mu     sync.RWMutex
	regs   map[string]registration
	order  []string // Maintains registration order
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{
		Timeout:  10 * time.Second,
		Parallel: true,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}

	return &Aggregator{
		config: cfg,
		regs:   make(map[string]registration),
		order:  make([]string, 0),
	}
}

// Register adds a health checker to the aggregator as critical: its
// failure makes the aggregate unhealthy.
func (a *Aggregator) Register(name string, checker Checker) {
	a.register(name, checker, true)
}

// RegisterOptional adds a health checker whose failure only degrades the
// aggregate rather than making it unhealthy.
func (a *Aggregator) RegisterOptional(name string, checker Checker) {
	a.register(name, checker, false)
}

func (a *Aggregator) register(name string, checker Checker, critical bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.regs[name]; !exists {
		a.order = append(a.order, name)
	}
	a.regs[name] = registration{checker: checker, critical: critical}
}

// Unregister removes a health checker from the aggregator.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.regs, name)

	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// CheckerNames returns the names of all registered checkers.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	reg, ok := a.regs[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	return a.runCheck(ctx, reg.checker), nil
}

// CheckAll runs all registered health checks and returns the results.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	regs := make(map[string]registration, len(a.regs))
	for name, reg := range a.regs {
		regs[name] = reg
	}
	a.mu.RUnlock()

	if len(regs) == 0 {
		return make(map[string]Result)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(regs))

	if a.config.Parallel {
		var wg sync.WaitGroup
		var mu sync.Mutex

		for name, reg := range regs {
			wg.Add(1)
			go func(name string, reg registration) {
				defer wg.Done()
				result := a.runCheck(ctx, reg.checker)
				mu.Lock()
				results[name] = result
				mu.Unlock()
			}(name, reg)
		}

		wg.Wait()
	} else {
		for name, reg := range regs {
			results[name] = a.runCheck(ctx, reg.checker)
		}
	}

	return results
}

// OverallStatus computes the overall health status from a set of results,
// weighing each by the criticality it was registered with. An unhealthy
// critical checker always yields StatusUnhealthy; an unhealthy
// non-critical checker yields at most StatusDegraded. Checkers no longer
// registered (results passed in from a stale snapshot) are treated as
// critical.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	if len(results) == 0 {
		return StatusHealthy
	}

	a.mu.RLock()
	regs := a.regs
	a.mu.RUnlock()

	hasUnhealthy := false
	hasDegraded := false

	for name, result := range results {
		critical := true
		if reg, ok := regs[name]; ok {
			critical = reg.critical
		}

		switch result.Status {
		case StatusUnhealthy:
			if critical {
				hasUnhealthy = true
			} else {
				hasDegraded = true
			}
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func (a *Aggregator) runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()

	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}

// Checker returns a single Checker interface for the aggregator.
// This allows the aggregator to be used as a checker itself.
func (a *Aggregator) Checker() Checker {
	return &aggregatorChecker{agg: a}
}

type aggregatorChecker struct {
	agg *Aggregator
}

func (c *aggregatorChecker) Name() string {
	return "aggregate"
}

func (c *aggregatorChecker) Check(ctx context.Context) Result {
	results := c.agg.CheckAll(ctx)
	if len(results) == 0 {
		return Unhealthy("no checkers registered", ErrNoCheckers)
	}
	status := c.agg.OverallStatus(results)

	details := make(map[string]any, len(results))
	for name, result := range results {
		details[name] = map[string]any{
			"status":   result.Status.String(),
			"message":  result.Message,
			"duration": result.Duration.String(),
		}
	}

	var message string
	switch status {
	case StatusHealthy:
		message = "all checks passed"
	case StatusDegraded:
		message = "some checks degraded"
	case StatusUnhealthy:
		message = "some checks failed"
	}

	return Result{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}
