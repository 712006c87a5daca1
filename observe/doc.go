// Package observe provides OpenTelemetry-based observability for broker
// resource operations.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the Observer into the broker and
// resilience packages.
//
// # Overview
//
// observe provides three observability pillars:
//   - Tracing: OpenTelemetry spans with resource metadata attributes
//   - Metrics: Operation counters and duration histograms
//   - Logging: Structured JSON logging with automatic field redaction
//
// # Core Components
//
//   - [Observer]: Main facade providing Tracer, Meter, and Logger access
//   - [Tracer]: Span creation with resource metadata as span attributes
//   - [Metrics]: Records operation counts, errors, and duration histograms
//   - [Logger]: Structured JSON logging with sensitive field redaction
//   - [Middleware]: Wraps ExecuteFunc with complete observability
//
// # Quick Start
//
//	cfg := observe.Config{
//	    ServiceName: "broker-gateway",
//	    Version:     "1.0.0",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1.0},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	}
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obs.Shutdown(ctx)
//
//	// Create middleware and wrap a retried operation
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	wrappedExec := mw.Wrap(originalExecuteFunc)
//
//	// Execute - automatically traced, metered, and logged
//	result, err := wrappedExec(ctx, resourceMeta, input)
//
// # Telemetry Details
//
// Tracing creates spans with deterministic names:
//   - With namespace: "broker.op.<namespace>.<name>" (e.g., "broker.op.orders.declare_queue")
//   - Without namespace: "broker.op.<name>" (e.g., "broker.op.publish")
//
// Span attributes include:
//   - resource.id: Fully qualified resource identifier
//   - resource.name: Resource name (required)
//   - resource.namespace: Resource namespace (if set)
//   - resource.version: Resource version (if set)
//   - resource.category: Resource category (if set)
//   - resource.tags: Discovery tags (if set)
//   - resource.error: Boolean indicating operation failure
//
// ResourceMeta.Kind selects the OpenTelemetry span kind: OperationPublish
// produces a producer span, OperationConsume a consumer span, and the
// default OperationInternal covers dial/declare/admin operations. A
// ResourceMeta.Attempt greater than 1 (2nd try, 3rd try, ...) is attached as the
// resource.attempt span attribute so a redial shows up as one logical
// operation with multiple attempts rather than unrelated spans.
//
// Metrics recorded:
//   - broker.op.total (counter): Total operations by resource
//   - broker.op.errors (counter): Total errors by resource
//   - broker.op.duration_ms (histogram): Duration distribution in milliseconds
//   - broker.op.in_flight (up/down counter): Operations currently executing
//
// All metrics include labels: resource.id, resource.name, resource.namespace (if set).
//
// # Sensitive Field Redaction
//
// The logger automatically redacts these fields to prevent credential leakage:
//   - input, inputs
//   - password, secret, token
//   - api_key, apikey, credential
//   - dsn, url, uri (suffix-matched: dial_url, amqp_dsn, auth_token)
//
// See [RedactedFields] for the complete list.
//
// # Repeated-Message Suppression
//
// [NewLoggerWithWriter] bursts the first 5 occurrences of an identical
// (level, message) pair within a 1-second window and drops the rest,
// attaching a suppressed_repeats count to the next admitted line. A
// connection stuck in a redial loop would otherwise log the same
// dial-failure line at the backoff's pace instead of the operator's.
//
// # Exporter Configuration
//
// Tracing exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT)
//   - "jaeger": Jaeger via OTLP (requires OTEL_EXPORTER_JAEGER_ENDPOINT)
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// Metrics exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT)
//   - "prometheus": Prometheus scrape endpoint
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//   - [Observer]: Tracer(), Meter(), Logger() are safe; Shutdown() is idempotent
//   - [Tracer]: StartSpan() and EndSpan() are safe for concurrent use
//   - [Metrics]: RecordExecution() is safe for concurrent use
//   - [Logger]: All logging methods are mutex-protected
//   - [Middleware]: Wrap() returns a thread-safe ExecuteFunc
//
// # Error Handling
//
// Configuration errors (use errors.Is for checking):
//   - [ErrMissingServiceName]: Config.ServiceName is empty
//   - [ErrInvalidSamplePct]: Tracing.SamplePct not in [0.0, 1.0]
//   - [ErrInvalidTracingExporter]: Unknown tracing exporter name
//   - [ErrInvalidMetricsExporter]: Unknown metrics exporter name
//   - [ErrInvalidLogLevel]: Unknown log level
//
// Exporter errors:
//   - [ErrEndpointNotConfigured]: Required endpoint env var not set
//
// Runtime errors:
//   - [ErrNilObserver]: Nil Observer passed to function
//   - [ErrMissingResourceName]: ResourceMeta.Name is empty (see ResourceMeta.Validate)
//
// Example error handling:
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if errors.Is(err, observe.ErrMissingServiceName) {
//	    // Handle missing service name
//	}
//	if errors.Is(err, observe.ErrEndpointNotConfigured) {
//	    // Handle missing OTLP endpoint
//	}
//
// Config.FailOpen changes how exporter construction failures are handled:
// by default NewObserver returns an error, but with FailOpen set the
// affected subsystem (tracing or metrics) degrades to its no-op
// implementation instead. A broker should not refuse to dial because its
// tracing collector is unreachable.
//
// # Integration
//
// observe is consumed by the resilience and broker packages to report
// retry attempts, circuit state transitions, and topology recovery
// outcomes under a single set of spans, counters, and log lines. The
// broker.op.in_flight gauge and the Middleware slow-operation warning give
// an operator a way to notice a wedged channel before any individual
// publish or consume trips a resilience timeout.
package observe
