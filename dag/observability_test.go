package dag

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/observability"
)

func decorators(t *testing.T) map[string]func(Node) Node {
	t.Helper()
	metrics, err := observability.NewRenderMetrics(metricnoop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	return map[string]func(Node) Node{
		"tracing": func(n Node) Node { return WithTracing(n, "render") },
		"metrics": func(n Node) Node { return WithMetrics(n, metrics) },
		"logging": func(n Node) Node { return WithLogging(n, logger.Nop()) },
	}
}

func TestDecorators_ForwardNameEnabledAndClose(t *testing.T) {
	for name, wrap := range decorators(t) {
		t.Run(name, func(t *testing.T) {
			rendering := newRendering(t, false)
			haze := newGatedCounter("finalHaze", rendering)
			node := wrap(haze)

			if node.Name() != "finalHaze" {
				t.Fatalf("expected name to be forwarded, got %q", node.Name())
			}
			if Enabled(node) {
				t.Fatal("expected the gate to be forwarded (disabled)")
			}
			_ = rendering.Set("inscattering", true)
			if !Enabled(node) {
				t.Fatal("expected the gate to be forwarded (enabled)")
			}

			if err := CloseNode(node); err != nil {
				t.Fatal(err)
			}
			if !haze.counter.closed {
				t.Fatal("expected Close to reach the inner node")
			}
		})
	}
}

func TestDecorators_PropagateErrors(t *testing.T) {
	nodeErr := errors.New("fail")
	for name, wrap := range decorators(t) {
		t.Run(name, func(t *testing.T) {
			node := wrap(NodeFunc("broken", func(context.Context, *Frame) error { return nodeErr }))
			err := node.Process(context.Background(), &Frame{Number: 1, State: NewState()})
			if !errors.Is(err, nodeErr) {
				t.Fatalf("expected node error, got %v", err)
			}
		})
	}
}

func TestDecorators_EngineSkipsWrappedDisabledNode(t *testing.T) {
	rendering := newRendering(t, false)
	haze := newGatedCounter("finalHaze", rendering)
	node := WithLogging(WithTracing(haze, "render"), logger.Nop())

	g := NewGraph()
	_ = g.Add(node)
	res, err := NewEngine().RenderFrame(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if res.NodeResults["finalHaze"].Status != StatusSkipped || haze.counter.calls != 0 {
		t.Fatal("a decorated disabled node must still be skipped")
	}
}

func TestWithTracing_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	g := NewGraph()
	_ = g.Add(
		WithTracing(noop("intermediateHaze"), "render"),
		WithTracing(NodeFunc("finalHaze", func(context.Context, *Frame) error { return errors.New("boom") }), "render"),
	)
	g.Connect("intermediateHaze", "finalHaze")

	if _, err := NewEngine().RenderFrame(context.Background(), g); err != nil {
		t.Fatal(err)
	}

	names := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = s
	}
	for _, want := range []string{"render.intermediateHaze", "render.finalHaze", observability.SpanFrame} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected span %q, got %v", want, names)
		}
	}
	if len(names["render.finalHaze"].Events()) == 0 {
		t.Fatal("expected the error to be recorded on the span")
	}
	if names["render.finalHaze"].Parent().SpanID() != names[observability.SpanFrame].SpanContext().SpanID() {
		t.Fatal("node spans should be children of the frame span")
	}
}

func TestWithMetrics_RecordsOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := observability.NewRenderMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	rendering := newRendering(t, false)
	g := NewGraph()
	_ = g.Add(WithMetrics(noop("bloom"), metrics), newGatedCounter("finalHaze", rendering))

	e := NewEngine(WithEngineMetrics(metrics))
	for i := 0; i < 2; i++ {
		if _, err := e.RenderFrame(context.Background(), g); err != nil {
			t.Fatal(err)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	// bloom: 2 from the decorator + 2 from the engine; finalHaze: 2 skipped.
	if sums["render.node.total"] != 6 {
		t.Fatalf("expected 6 node visits, got %d", sums["render.node.total"])
	}
	if sums["render.node.skipped"] != 2 || sums["render.frame.total"] != 2 {
		t.Fatalf("unexpected sums %v", sums)
	}
}

func TestWithLogging_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	node := WithLogging(NodeFunc("finalHaze", func(context.Context, *Frame) error { return errors.New("boom") }), log)
	ctx := observability.WithFrame(context.Background(), &observability.FrameInfo{Number: 9, RunID: "run-9"})
	_ = node.Process(ctx, &Frame{Number: 9, State: NewState()})

	out := buf.String()
	for _, want := range []string{`"node":"finalHaze"`, `"frame":9`, `"error":"boom"`, `"run_id":"run-9"`, `"operation":"process"`, "node failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
