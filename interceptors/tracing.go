package interceptors

import (
	"context"

	"github.com/glimte/typebus/contracts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for dispatch tracing
const tracerName = "github.com/glimte/typebus"

// TracingInterceptor wraps each dispatch in an OpenTelemetry span. Nested
// dispatches (pipes, responses published from handlers) become child spans.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// TracingOption configures the TracingInterceptor
type TracingOption func(*TracingInterceptor)

// WithTracerProvider uses a tracer from tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(i *TracingInterceptor) {
		if tp != nil {
			i.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithTracer uses tracer directly
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(i *TracingInterceptor) {
		if tracer != nil {
			i.tracer = tracer
		}
	}
}

// NewTracingInterceptor creates a new tracing interceptor. Without options the
// global TracerProvider is used, which is a no-op until one is installed.
func NewTracingInterceptor(opts ...TracingOption) *TracingInterceptor {
	i := &TracingInterceptor{tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Intercept implements Interceptor
func (i *TracingInterceptor) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	kind := "command"
	if contracts.IsEvent(msg) {
		kind = "event"
	}

	ctx, span := i.tracer.Start(ctx, "typebus.dispatch",
		trace.WithAttributes(
			attribute.String("typebus.message.type", MessageType(msg)),
			attribute.String("typebus.message.kind", kind),
			attribute.String("typebus.correlation_id", msg.GetCorrelationID()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	processed, err := next.Dispatch(ctx, msg)
	span.SetAttributes(attribute.Bool("typebus.processed", processed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return processed, err
}

// Name implements Interceptor
func (i *TracingInterceptor) Name() string {
	return "TracingInterceptor"
}
