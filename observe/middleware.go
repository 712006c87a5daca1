package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature for broker operation functions.
// This is the standard function signature that Middleware wraps.
type ExecuteFunc func(ctx context.Context, meta ResourceMeta, input any) (any, error)

const defaultSlowThreshold = 500 * time.Millisecond

// Middleware wraps broker operation execution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Input/output values are passed through without modification.
type Middleware struct {
	tracer        Tracer
	metrics       Metrics
	logger        Logger
	slowThreshold time.Duration
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:        tracer,
		metrics:       metrics,
		logger:        logger,
		slowThreshold: defaultSlowThreshold,
	}
}

// WithSlowThreshold sets the duration past which a successful operation is
// logged at warn instead of info. Zero disables slow-operation warnings.
func (m *Middleware) WithSlowThreshold(d time.Duration) *Middleware {
	m.slowThreshold = d
	return m
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta ResourceMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		m.metrics.RecordInFlight(ctx, meta, 1)
		defer m.metrics.RecordInFlight(ctx, meta, -1)

		start := time.Now()
		result, err := fn(ctx, meta, input)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, meta, duration, err)

		resourceLogger := m.logger.WithResource(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		switch {
		case err != nil:
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			resourceLogger.Error(ctx, "broker operation failed", fields...)
		case m.slowThreshold > 0 && duration > m.slowThreshold:
			resourceLogger.Warn(ctx, "broker operation completed slowly", fields...)
		default:
			resourceLogger.Info(ctx, "broker operation completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
