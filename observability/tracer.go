package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/rendergraph/logger"
)

const instrumentationName = "github.com/kbukum/rendergraph"

// Span names.
const (
	SpanFrame = "render.frame"
	SpanNode  = "render.node"
)

// Attribute keys shared by spans and metrics.
const (
	AttrNode   = "render.node"
	AttrFrame  = "render.frame"
	AttrRunID  = "render.run_id"
	AttrStatus = "status"
)

// TracerConfig points the OTLP HTTP span exporter at a collector.
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // host:port
	Insecure       bool
	SampleRate     float64 // 0..1
}

// InitTracer installs a batching OTLP tracer provider as the global provider.
// Callers own its Shutdown.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logger.Info("tracing enabled", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// newResource is schemaless so it merges with any SDK default schema.
func newResource(service, version, environment string) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
		attribute.String("environment", environment),
	))
}

// StartSpan starts a span on the global provider's render tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// SetFrameAttributes tags the current span with the frame number and run id.
func SetFrameAttributes(ctx context.Context, info *FrameInfo) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || info == nil {
		return
	}
	span.SetAttributes(
		attribute.Int64(AttrFrame, int64(info.Number)),
		attribute.String(AttrRunID, info.RunID),
	)
}

// SetNodeAttributes tags the current span with the node being processed.
func SetNodeAttributes(ctx context.Context, node string, frame uint64) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String(AttrNode, node),
		attribute.Int64(AttrFrame, int64(frame)),
	)
}

// SetSpanError records err on the current span, if any.
func SetSpanError(ctx context.Context, err error) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
	}
}
