package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for broker operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a broker operation with duration and error status.
	RecordExecution(ctx context.Context, meta ResourceMeta, duration time.Duration, err error)

	// RecordInFlight adjusts the in-flight operation gauge for meta by
	// delta (+1 on entry, -1 on exit). A channel stuck waiting on a
	// flow-control block or a recovering gate shows up here as a gauge
	// that stops returning to zero, before any individual call is slow
	// enough to trip a timeout.
	RecordInFlight(ctx context.Context, meta ResourceMeta, delta int64)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	inFlight     metric.Int64UpDownCounter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"broker.op.total",
		metric.WithDescription("Total number of broker operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"broker.op.errors",
		metric.WithDescription("Total number of broker operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"broker.op.duration_ms",
		metric.WithDescription("Broker operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		"broker.op.in_flight",
		metric.WithDescription("Broker operations currently executing"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		inFlight:     inFlight,
	}, nil
}

func attrsFor(meta ResourceMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("resource.id", meta.ResourceID()),
		attribute.String("resource.name", meta.Name),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("resource.namespace", meta.Namespace))
	}
	return attrs
}

// RecordExecution records metrics for a broker operation.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta ResourceMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attrsFor(meta)...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordInFlight adjusts the in-flight gauge for meta.
func (m *metricsImpl) RecordInFlight(ctx context.Context, meta ResourceMeta, delta int64) {
	m.inFlight.Add(ctx, delta, metric.WithAttributes(attrsFor(meta)...))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordExecution(ctx context.Context, meta ResourceMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordInFlight(ctx context.Context, meta ResourceMeta, delta int64) {}
