package dag

import (
	"maps"
	"slices"

	"github.com/kbukum/rendergraph/errors"
)

// Graph is a set of named nodes plus the dependency edges between them.
type Graph struct {
	Nodes map[string]Node
	Edges []Edge
}

// Edge says To runs after From in every frame.
type Edge struct {
	From string
	To   string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]Node)}
}

// Add registers nodes under their names. A duplicate name, either in the
// graph or within nodes, is ALREADY_EXISTS and leaves the graph unchanged.
func (g *Graph) Add(nodes ...Node) error {
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		name := n.Name()
		if _, ok := g.Nodes[name]; ok {
			return errors.AlreadyExists("node", name)
		}
		if _, ok := seen[name]; ok {
			return errors.AlreadyExists("node", name)
		}
		seen[name] = struct{}{}
	}
	for _, n := range nodes {
		g.Nodes[n.Name()] = n
	}
	return nil
}

// Connect declares that to depends on from.
func (g *Graph) Connect(from, to string) {
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// Names lists node names in sorted order.
func (g *Graph) Names() []string {
	return slices.Sorted(maps.Keys(g.Nodes))
}

// Close closes every node in the graph.
func (g *Graph) Close() error {
	return CloseGraph(g)
}

// BuildLevels groups nodes into dependency levels (Kahn's algorithm). Every
// node in a level depends only on earlier levels, and each level is sorted
// by name so frame walks are deterministic.
func BuildLevels(g *Graph) ([][]string, error) {
	pending := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		pending[name] = 0
	}
	dependents := map[string][]string{}
	for _, e := range g.Edges {
		for _, end := range []string{e.From, e.To} {
			if _, ok := g.Nodes[end]; !ok {
				return nil, errors.NotFound("node", end).WithDetail("edge", e.From+"->"+e.To)
			}
		}
		pending[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var levels [][]string
	ready := readyNodes(pending)
	placed := 0
	for len(ready) > 0 {
		slices.Sort(ready)
		levels = append(levels, ready)
		placed += len(ready)

		var next []string
		for _, name := range ready {
			for _, dep := range dependents[name] {
				if pending[dep]--; pending[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		ready = next
	}
	if placed != len(g.Nodes) {
		return nil, errors.CycleDetected(placed, len(g.Nodes))
	}
	return levels, nil
}

func readyNodes(pending map[string]int) []string {
	var out []string
	for name, n := range pending {
		if n == 0 {
			out = append(out, name)
		}
	}
	return out
}
