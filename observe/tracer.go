package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationKind classifies the direction of a broker operation so spans can
// carry the right OpenTelemetry messaging semantics (producer vs consumer).
type OperationKind int

const (
	// OperationInternal covers operations with no message direction, such
	// as dialing or declaring topology.
	OperationInternal OperationKind = iota
	// OperationPublish covers sends onto an exchange.
	OperationPublish
	// OperationConsume covers deliveries read off a queue.
	OperationConsume
)

func (k OperationKind) spanKind() trace.SpanKind {
	switch k {
	case OperationPublish:
		return trace.SpanKindProducer
	case OperationConsume:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

// ResourceMeta contains metadata about a broker resource for telemetry purposes.
type ResourceMeta struct {
	ID        string        // Fully qualified resource ID (namespace.name or just name)
	Namespace string        // Resource namespace (may be empty)
	Name      string        // Resource name (required)
	Version   string        // Resource version (optional)
	Tags      []string      // Resource tags for discovery (optional)
	Category  string        // Resource category (optional)
	Kind      OperationKind // Message direction, for span-kind selection
	Attempt   int           // 1-based retry attempt, 0 if not part of a retried call
}

// Validate reports whether the metadata is usable for telemetry. Name is
// the only required field; everything else is optional context.
func (m ResourceMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingResourceName
	}
	return nil
}

// SpanName returns the deterministic span name for this resource.
// Format: broker.op.<namespace>.<name> or broker.op.<name>
func (m ResourceMeta) SpanName() string {
	if m.Namespace != "" {
		return "broker.op." + m.Namespace + "." + m.Name
	}
	return "broker.op." + m.Name
}

// ResourceID returns the fully qualified resource identifier.
// If ID field is set, returns it. Otherwise constructs from namespace and name.
func (m ResourceMeta) ResourceID() string {
	if m.ID != "" {
		return m.ID
	}
	if m.Namespace != "" {
		return m.Namespace + "." + m.Name
	}
	return m.Name
}

// Tracer wraps OpenTelemetry tracing with broker-resource span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span; it has no error result.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a broker operation.
	StartSpan(ctx context.Context, meta ResourceMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with resource metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta ResourceMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	// Build attributes
	attrs := []attribute.KeyValue{
		attribute.String("resource.id", meta.ResourceID()),
		attribute.String("resource.name", meta.Name),
		attribute.Bool("resource.error", false), // Will be updated in EndSpan if error
	}

	// Add namespace if present
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("resource.namespace", meta.Namespace))
	}

	// Add optional attributes if present
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("resource.version", meta.Version))
	}
	if meta.Category != "" {
		attrs = append(attrs, attribute.String("resource.category", meta.Category))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("resource.tags", meta.Tags))
	}
	if meta.Attempt > 1 {
		attrs = append(attrs, attribute.Int("resource.attempt", meta.Attempt))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(meta.Kind.spanKind()),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("resource.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta ResourceMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
