// Package observability wires OpenTelemetry tracing and metrics for the
// render loop.
//
// Setup installs OTLP/HTTP tracer and meter providers when enabled and
// returns a shutdown function:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "rendergraph", "1.0.0", "development")
//	defer shutdown(ctx)
//
// Render metrics are created on a meter and recorded by the frame engine:
//
//	m, err := observability.NewRenderMetrics(observability.Meter("rendergraph"))
//	m.RecordNode(ctx, "finalHaze", observability.StatusSkipped, 0)
//
// Frame identity travels in the context so spans and logs can be tagged:
//
//	ctx = observability.WithFrame(ctx, observability.NewFrameInfo(42))
package observability
