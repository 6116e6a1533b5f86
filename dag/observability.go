package dag

import (
	"context"
	"time"

	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/observability"
)

// wrapped carries the parts every decorator forwards unchanged, so a
// decorated node keeps its name, its enable switch and its Close.
type wrapped struct {
	inner Node
}

func (w wrapped) Name() string    { return w.inner.Name() }
func (w wrapped) IsEnabled() bool { return Enabled(w.inner) }
func (w wrapped) Close() error    { return CloseNode(w.inner) }
func (w wrapped) Unwrap() Node    { return w.inner }

// WithTracing wraps a Node with OpenTelemetry span creation.
// Each visit creates a span named "{prefix}.{nodeName}".
func WithTracing(node Node, prefix string) Node {
	return &tracingNode{wrapped: wrapped{node}, prefix: prefix}
}

type tracingNode struct {
	wrapped
	prefix string
}

func (n *tracingNode) Process(ctx context.Context, frame *Frame) error {
	ctx, span := observability.StartSpan(ctx, n.prefix+"."+n.inner.Name())
	defer span.End()

	observability.SetNodeAttributes(ctx, n.inner.Name(), frame.Number)

	err := n.inner.Process(ctx, frame)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return err
}

// WithMetrics wraps a Node with per-node duration and outcome metrics.
// Use it for graphs run by an engine without WithEngineMetrics.
func WithMetrics(node Node, metrics *observability.RenderMetrics) Node {
	return &metricsNode{wrapped: wrapped{node}, metrics: metrics}
}

type metricsNode struct {
	wrapped
	metrics *observability.RenderMetrics
}

func (n *metricsNode) Process(ctx context.Context, frame *Frame) error {
	start := time.Now()
	err := n.inner.Process(ctx, frame)

	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	n.metrics.RecordNode(ctx, n.inner.Name(), status, time.Since(start))
	return err
}

// WithLogging wraps a Node with execution logging.
func WithLogging(node Node, log *logger.Logger) Node {
	return &loggingNode{wrapped: wrapped{node}, log: log}
}

type loggingNode struct {
	wrapped
	log *logger.Logger
}

func (n *loggingNode) Process(ctx context.Context, frame *Frame) error {
	start := time.Now()
	err := n.inner.Process(ctx, frame)

	fields := logger.DurationFields("process", time.Since(start))
	fields[logger.FieldNode] = n.inner.Name()
	fields[logger.FieldFrame] = frame.Number
	if info := observability.FrameFromContext(ctx); info != nil {
		fields["run_id"] = info.RunID
	}
	if err != nil {
		fields[logger.FieldError] = err.Error()
		n.log.Error("node failed", fields)
	} else {
		n.log.Debug("node processed", fields)
	}
	return err
}
