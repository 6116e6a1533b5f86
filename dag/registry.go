package dag

import (
	"maps"
	"slices"
	"sync"
)

// Registry maps pipeline `component:` keys to built nodes.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Register stores node under key. A later registration wins.
func (r *Registry) Register(key string, node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[key] = node
}

// RegisterNodes stores each node under its own name.
func (r *Registry) RegisterNodes(nodes ...Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range nodes {
		r.nodes[n.Name()] = n
	}
}

// Get returns the node registered under key.
func (r *Registry) Get(key string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	return n, ok
}

// List returns the registered keys in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.nodes))
}
