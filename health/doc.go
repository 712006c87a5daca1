// Package health provides health checking primitives for a message-broker
// client.
//
// It implements a generic health checking framework for monitoring
// component health — the broker connection, process memory, goroutine
// count, and any user-defined dependency — and exposes aggregate status
// via HTTP endpoints compatible with Kubernetes probes.
//
// # Ecosystem Position
//
// health integrates with service mesh and orchestration systems:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     Health Check Architecture                   │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│   Kubernetes          health              Components            │
//	│   ┌─────────┐      ┌───────────┐        ┌───────────┐          │
//	│   │Liveness │─────▶│  HTTP     │        │  Broker   │          │
//	│   │ Probe   │      │ Handlers  │        │  Checker  │          │
//	│   ├─────────┤      │           │        ├───────────┤          │
//	│   │Readiness│─────▶│ /healthz  │◀───────│  Memory   │          │
//	│   │ Probe   │      │ /readyz   │        │  Checker  │          │
//	│   └─────────┘      │ /health   │        ├───────────┤          │
//	│                    │           │        │  Custom   │          │
//	│   Load Balancer    │ ┌───────┐ │        │  Checker  │          │
//	│   ┌─────────┐      │ │Aggreg-│◀┼────────┴───────────┘          │
//	│   │ Health  │─────▶│ │ ator  │ │                                │
//	│   │ Checks  │      │ └───────┘ │                                │
//	│   └─────────┘      └───────────┘                                │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Status Types
//
// The [Status] type represents component health:
//
//   - [StatusHealthy]: Component is functioning normally
//   - [StatusDegraded]: Component is functioning but with issues
//   - [StatusUnhealthy]: Component is not functioning properly
//
// # Core Components
//
//   - [Checker]: Interface for health checks (Name() + Check())
//   - [CheckerFunc]: Adapter for function-based checkers
//   - [Result]: Health check outcome with status, message, details, duration
//   - [Aggregator]: Combines multiple checkers into composite health,
//     distinguishing critical checkers (registered via [Aggregator.Register])
//     from optional ones ([Aggregator.RegisterOptional]) whose failure only
//     degrades rather than fails the aggregate
//   - [BrokerChecker]: Reports a broker connection's health from its Gate
//   - [MemoryChecker]: Built-in checker for memory usage and goroutine-count
//     thresholds
//
// # Quick Start
//
//	// Create checkers
//	brokerCheck := health.NewBrokerChecker(conn)
//	memCheck := health.NewMemoryChecker(health.MemoryCheckerConfig{
//	    WarningThreshold: 0.80,
//	    CriticalThreshold: 0.95,
//	    MaxGoroutines:     10_000,
//	})
//
//	// Create aggregator; the broker connection is critical, memory is not
//	agg := health.NewAggregator()
//	agg.Register("broker", brokerCheck)
//	agg.RegisterOptional("memory", memCheck)
//
//	// Check all components
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package provides Kubernetes-compatible HTTP handlers, each
// accepting an optional [HandlerConfig] to bound the probe timeout and
// enable short-lived result caching so a tight probe interval doesn't
// re-run every checker on each request:
//
//   - [LivenessHandler]: Simple /healthz endpoint - always returns 200 if running
//   - [ReadinessHandler]: Runs all checks, returns 503 if any critical check is unhealthy
//   - [DetailedHandler]: Returns JSON with full check details
//   - [SingleCheckHandler]: Check a specific component by name
//   - [RegisterHandlers]: Convenience function to register all handlers
//
// Example registration:
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, aggregator, health.HandlerConfig{CacheTTL: time.Second})
//	// Registers: /healthz, /readyz, /health
//
// # Aggregation Behavior
//
// The [Aggregator] computes overall status using worst-case logic,
// weighted by how each checker was registered:
//
//   - If ANY critical check is Unhealthy → overall Unhealthy
//   - If ANY check is Degraded, or any optional check is Unhealthy (and no
//     critical check is Unhealthy) → overall Degraded
//   - If ALL checks are Healthy → overall Healthy
//   - If NO checks are registered, [Aggregator.Checker] reports Unhealthy
//     with [ErrNoCheckers] — an aggregate with nothing to check is not
//     evidence of health
//
// Checks can run in parallel (default) or sequentially via [AggregatorConfig].
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [Aggregator]: sync.RWMutex protects registration and check execution
//   - [BrokerChecker]: atomic counter tracks consecutive ping failures
//   - [MemoryChecker]: Stateless, concurrent-safe
//   - [CheckerFunc]: Delegates to user function, ensure your function is safe
//   - [Result]: Immutable after creation
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrCheckFailed]: Generic health check failure
//   - [ErrCheckTimeout]: Check exceeded timeout
//   - [ErrCheckerNotFound]: Named checker not registered
//   - [ErrNoCheckers]: No checkers registered in aggregator
//
// # Integration
//
// health integrates with the rest of this module's packages:
//
//   - resilience: BrokerChecker reads Connection.GateOpen(), which reflects
//     a CircuitBreaker-style Gate state
//   - observe: aggregate results are suitable for logging via the same
//     Logger the broker and resilience packages use
package health
