package dag

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/observability"
)

// Engine walks a graph once per frame on the calling goroutine.
type Engine struct {
	log     *logger.Logger
	metrics *observability.RenderMetrics
	frames  atomic.Uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine logger.
func WithEngineLogger(log *logger.Logger) EngineOption {
	return func(e *Engine) { e.log = log.WithComponent("render-engine") }
}

// WithEngineMetrics records frame and node metrics.
func WithEngineMetrics(m *observability.RenderMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Frames returns the number of frames started.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

// RenderFrame visits every node of g once, in dependency order. Disabled
// nodes are skipped, failed nodes are recorded and the walk goes on. A
// cancelled context stops the walk between nodes.
func (e *Engine) RenderFrame(ctx context.Context, g *Graph) (*Result, error) {
	levels, err := BuildLevels(g)
	if err != nil {
		return nil, err
	}

	info := observability.NewFrameInfo(e.frames.Add(1))
	ctx = observability.WithFrame(ctx, info)
	ctx, span := observability.StartSpan(ctx, observability.SpanFrame)
	defer span.End()
	observability.SetFrameAttributes(ctx, info)

	frame := &Frame{
		Number: info.Number,
		RunID:  info.RunID,
		Time:   info.StartTime,
		State:  NewState(),
	}
	result := &Result{
		Frame:       info.Number,
		NodeResults: make(map[string]NodeResult, len(g.Nodes)),
	}

	for _, level := range levels {
		for _, name := range level {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			nr := e.visit(ctx, g.Nodes[name], frame)
			result.NodeResults[name] = nr
			result.Order = append(result.Order, name)
		}
	}

	result.Duration = info.Elapsed()
	if e.metrics != nil {
		e.metrics.RecordFrame(ctx, result.Duration, result.Failed())
	}
	e.log.Debug("frame rendered", logger.Fields(
		logger.FieldFrame, frame.Number,
		"completed", result.Count(StatusCompleted),
		"skipped", result.Count(StatusSkipped),
		"failed", result.Count(StatusFailed),
	))
	return result, nil
}

func (e *Engine) visit(ctx context.Context, node Node, frame *Frame) NodeResult {
	name := node.Name()
	if !Enabled(node) {
		e.record(ctx, name, StatusSkipped, 0)
		return NodeResult{Name: name, Status: StatusSkipped}
	}

	start := time.Now()
	err := process(ctx, node, frame)
	duration := time.Since(start)

	if err != nil {
		e.record(ctx, name, StatusFailed, duration)
		e.log.Warn("node failed", logger.Fields(
			logger.FieldNode, name,
			logger.FieldFrame, frame.Number,
			logger.FieldError, err.Error(),
		))
		return NodeResult{Name: name, Status: StatusFailed, Duration: duration, Error: err}
	}

	e.record(ctx, name, StatusCompleted, duration)
	return NodeResult{Name: name, Status: StatusCompleted, Duration: duration}
}

// process runs the node, turning a panic into an error so one broken node
// cannot stop the frame loop.
func process(ctx context.Context, node Node, frame *Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("node %s panicked: %v", node.Name(), r))
		}
	}()
	return node.Process(ctx, frame)
}

func (e *Engine) record(ctx context.Context, node, status string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordNode(ctx, node, status, d)
	}
}

// RunOptions controls the frame loop.
type RunOptions struct {
	// Interval is the minimum time between frame starts. Zero renders
	// frames back to back.
	Interval time.Duration
	// Frames stops the loop after this many frames. Zero runs until the
	// context ends.
	Frames int
	// OnFrame, if set, receives every frame result.
	OnFrame func(*Result)
}

// Run renders frames until the context ends or the frame budget is spent
// and returns the number of frames rendered. Context cancellation is a
// normal stop, not an error.
func (e *Engine) Run(ctx context.Context, g *Graph, opts RunOptions) (int, error) {
	if _, err := BuildLevels(g); err != nil {
		return 0, err
	}

	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	rendered := 0
	for opts.Frames == 0 || rendered < opts.Frames {
		if ctx.Err() != nil {
			break
		}
		res, err := e.RenderFrame(ctx, g)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return rendered, err
		}
		rendered++
		if opts.OnFrame != nil {
			opts.OnFrame(res)
		}

		if tick != nil && (opts.Frames == 0 || rendered < opts.Frames) {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}

	e.log.Info("frame loop stopped", logger.Fields("frames", rendered))
	return rendered, nil
}
