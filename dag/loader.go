package dag

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
)

// PipelineLoader loads pipeline definitions by name.
type PipelineLoader interface {
	Load(name string) (*Pipeline, error)
}

// FilePipelineLoader loads pipelines from YAML files on disk.
type FilePipelineLoader struct {
	dirs []string
}

// NewFilePipelineLoader creates a loader that searches dirs for pipeline
// YAML files.
func NewFilePipelineLoader(dirs ...string) PipelineLoader {
	return &FilePipelineLoader{dirs: dirs}
}

// Load looks for {name}.yaml or {name}.yml in each directory and one level
// of subdirectories.
func (l *FilePipelineLoader) Load(name string) (*Pipeline, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if p, err := loadPipelineFile(path); err == nil {
				return p, nil
			}

			matches, _ := filepath.Glob(filepath.Join(dir, "*", name+ext))
			for _, match := range matches {
				if p, err := loadPipelineFile(match); err == nil {
					return p, nil
				}
			}
		}
	}
	return nil, errors.NotFound("pipeline", name).WithDetail("dirs", l.dirs)
}

func loadPipelineFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePipeline(data)
}

// ParsePipeline decodes a pipeline definition.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("dag: parsing pipeline: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// FlagSource is a rendering configuration whose flags can gate nodes.
type FlagSource interface {
	config.Subscribable
	Bool(flag config.Flag) bool
}

// ResolveOption configures ResolvePipeline.
type ResolveOption func(*resolver)

// WithConditions supplies the flags that `condition:` entries refer to.
func WithConditions(src FlagSource) ResolveOption {
	return func(r *resolver) { r.flags = src }
}

// WithResolveLogger sets the logger handed to created gates.
func WithResolveLogger(log *logger.Logger) ResolveOption {
	return func(r *resolver) { r.log = log }
}

type resolver struct {
	registry *Registry
	loader   PipelineLoader
	flags    FlagSource
	log      *logger.Logger

	stack    map[string]bool // current include path
	resolved map[string]bool // fully resolved pipelines
	gates    []*Gate
}

// ResolvePipeline converts a Pipeline definition into an executable Graph.
// Includes are resolved recursively and nodes are looked up in registry.
// Nodes with a condition are wrapped in a Gate subscribed to that flag.
func ResolvePipeline(p *Pipeline, registry *Registry, loader PipelineLoader, opts ...ResolveOption) (*Graph, error) {
	r := &resolver{
		registry: registry,
		loader:   loader,
		log:      logger.Nop(),
		stack:    make(map[string]bool),
		resolved: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	g, err := r.resolve(p)
	if err == nil {
		_, err = BuildLevels(g)
	}
	if err != nil {
		// Registry nodes are not ours to close; only the gates are.
		for _, gate := range r.gates {
			_ = gate.Close()
		}
		return nil, err
	}
	return g, nil
}

func (r *resolver) resolve(p *Pipeline) (*Graph, error) {
	if r.stack[p.Name] {
		return nil, errors.New(errors.ErrCodeCycleDetected,
			fmt.Sprintf("circular include detected for pipeline %q", p.Name))
	}
	r.stack[p.Name] = true
	defer delete(r.stack, p.Name)

	g := NewGraph()

	for _, includeName := range p.Includes {
		if r.resolved[includeName] {
			continue
		}
		if r.loader == nil {
			return nil, errors.MissingDependency("pipeline "+p.Name, "loader")
		}

		sub, err := r.loader.Load(includeName)
		if err != nil {
			return nil, fmt.Errorf("dag: loading include %q: %w", includeName, err)
		}
		subGraph, err := r.resolve(sub)
		if err != nil {
			return nil, err
		}

		for name, node := range subGraph.Nodes {
			if _, exists := g.Nodes[name]; exists {
				continue
			}
			g.Nodes[name] = node
		}
		g.Edges = append(g.Edges, subGraph.Edges...)
	}

	for _, def := range p.Nodes {
		if _, exists := g.Nodes[def.Component]; exists {
			// A node pulled in through an include keeps the gate it was
			// defined with; the including pipeline may only add ordering.
			if def.Condition != "" {
				return nil, errors.InvalidInput(def.Component+".condition",
					"node is already defined by an include; set the condition there")
			}
			for _, dep := range def.DependsOn {
				g.Connect(dep, def.Component)
			}
			continue
		}

		node, ok := r.registry.Get(def.Component)
		if !ok {
			return nil, errors.NotFound("component", def.Component)
		}
		if def.Condition != "" {
			gated, err := r.gate(def, node)
			if err != nil {
				return nil, err
			}
			node = gated
		}
		g.Nodes[def.Component] = node

		for _, dep := range def.DependsOn {
			g.Connect(dep, def.Component)
		}
	}

	r.resolved[p.Name] = true
	return g, nil
}

func (r *resolver) gate(def NodeDef, node Node) (Node, error) {
	if r.flags == nil {
		return nil, errors.MissingDependency("node "+def.Component, "rendering flags")
	}
	name, negate := parseCondition(def.Condition)
	if name == "" {
		return nil, errors.InvalidInput("condition", "flag name is empty")
	}
	flag := config.Flag(name)

	gate := NewGate(def.Component, WithGateLogger(r.log))
	r.gates = append(r.gates, gate)
	if err := gate.Subscribe(r.flags, flag); err != nil {
		return nil, err
	}
	src := r.flags
	if negate {
		gate.RequiresCondition(func() bool { return !src.Bool(flag) })
	} else {
		gate.RequiresCondition(func() bool { return src.Bool(flag) })
	}
	return Gated(node, gate), nil
}
