package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/rendergraph/logger"
)

// MeterConfig points the OTLP HTTP metric exporter at a collector.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // host:port
	Insecure       bool
	Interval       time.Duration // export period; SDK default when zero
}

// InitMeter installs a periodic OTLP meter provider as the global provider.
// Callers own its Shutdown.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("metric resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("metrics enabled", logger.Fields("endpoint", cfg.Endpoint, "interval", cfg.Interval.String()))
	return mp, nil
}

// Meter returns a meter from the global provider, a no-op until InitMeter.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Outcome of one node visit.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// RenderMetrics records frame and node outcomes for the render loop.
type RenderMetrics struct {
	frameTotal    metric.Int64Counter
	frameDuration metric.Float64Histogram
	nodeTotal     metric.Int64Counter
	nodeDuration  metric.Float64Histogram
	nodeSkipped   metric.Int64Counter
}

// NewRenderMetrics registers the render.frame.* and render.node.*
// instruments on meter.
func NewRenderMetrics(meter metric.Meter) (*RenderMetrics, error) {
	var (
		m    RenderMetrics
		errs []error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		*dst = c
		errs = append(errs, err)
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		*dst = h
		errs = append(errs, err)
	}

	counter(&m.frameTotal, "render.frame.total", "Rendered frames by outcome")
	seconds(&m.frameDuration, "render.frame.duration", "Duration of one graph walk")
	counter(&m.nodeTotal, "render.node.total", "Node visits by outcome")
	seconds(&m.nodeDuration, "render.node.duration", "Duration of node processing")
	counter(&m.nodeSkipped, "render.node.skipped", "Node visits skipped because the node was disabled")

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("render instruments: %w", err)
	}
	return &m, nil
}

// RecordFrame counts one graph walk and its duration.
func (m *RenderMetrics) RecordFrame(ctx context.Context, d time.Duration, failed bool) {
	status := StatusCompleted
	if failed {
		status = StatusFailed
	}
	m.frameTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status)))
	m.frameDuration.Record(ctx, d.Seconds())
}

// RecordNode counts one node visit. Skipped visits record no duration.
func (m *RenderMetrics) RecordNode(ctx context.Context, node, status string, d time.Duration) {
	nodeAttr := attribute.String("node", node)
	m.nodeTotal.Add(ctx, 1, metric.WithAttributes(nodeAttr, attribute.String(AttrStatus, status)))
	if status == StatusSkipped {
		m.nodeSkipped.Add(ctx, 1, metric.WithAttributes(nodeAttr))
		return
	}
	m.nodeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(nodeAttr))
}
