package dag

import (
	"context"
	"errors"
	"io"
	"time"
)

// Frame is the unit of work handed to every node in one graph walk.
type Frame struct {
	// Number increases by one per rendered frame.
	Number uint64
	// RunID is unique per frame.
	RunID string
	// Time is when the walk started.
	Time time.Time
	// State carries values between nodes of the same frame.
	State *State
}

// Node is the execution unit in a render graph.
type Node interface {
	Name() string
	Process(ctx context.Context, frame *Frame) error
}

// Conditional is implemented by nodes that can be switched off. A node that
// does not implement it is always enabled.
type Conditional interface {
	IsEnabled() bool
}

// Enabled reports whether n should be processed this frame.
func Enabled(n Node) bool {
	if c, ok := n.(Conditional); ok {
		return c.IsEnabled()
	}
	return true
}

// CloseNode releases n if it implements io.Closer.
func CloseNode(n Node) error {
	if c, ok := n.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CloseGraph closes every node in g and joins the errors.
func CloseGraph(g *Graph) error {
	var errs []error
	for _, name := range g.Names() {
		if err := CloseNode(g.Nodes[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NodeFunc adapts a function to Node.
func NodeFunc(name string, fn func(ctx context.Context, frame *Frame) error) Node {
	return &funcNode{name: name, fn: fn}
}

type funcNode struct {
	name string
	fn   func(ctx context.Context, frame *Frame) error
}

func (n *funcNode) Name() string { return n.name }

func (n *funcNode) Process(ctx context.Context, frame *Frame) error {
	return n.fn(ctx, frame)
}
