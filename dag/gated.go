package dag

import (
	"context"
	"errors"
)

// GatedNode attaches a Gate to a node.
type GatedNode struct {
	inner Node
	gate  *Gate
}

var (
	_ Node        = (*GatedNode)(nil)
	_ Conditional = (*GatedNode)(nil)
)

// Gated returns node switched by gate.
func Gated(node Node, gate *Gate) *GatedNode {
	return &GatedNode{inner: node, gate: gate}
}

// Name returns the inner node's name.
func (n *GatedNode) Name() string { return n.inner.Name() }

// Process runs the inner node. The engine checks IsEnabled first.
func (n *GatedNode) Process(ctx context.Context, frame *Frame) error {
	return n.inner.Process(ctx, frame)
}

// IsEnabled is true when the gate is open and the inner node, if it is
// itself conditional, is enabled too.
func (n *GatedNode) IsEnabled() bool {
	return n.gate.IsEnabled() && Enabled(n.inner)
}

// Gate returns the node's gate.
func (n *GatedNode) Gate() *Gate { return n.gate }

// Unwrap returns the inner node.
func (n *GatedNode) Unwrap() Node { return n.inner }

// Close cancels the gate's subscriptions and closes the inner node.
func (n *GatedNode) Close() error {
	return errors.Join(n.gate.Close(), CloseNode(n.inner))
}
