package dag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/rendergraph/config"
	apperrors "github.com/kbukum/rendergraph/errors"
)

// mapLoader serves pipelines from memory.
type mapLoader map[string]*Pipeline

func (m mapLoader) Load(name string) (*Pipeline, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("pipeline", name)
}

func testRegistry(names ...string) *Registry {
	r := NewRegistry()
	for _, n := range names {
		r.Register(n, noop(n))
	}
	return r
}

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(`
name: haze
description: haze layer
nodes:
  - component: intermediateHaze
    condition: inscattering
  - component: finalHaze
    depends_on: [intermediateHaze]
    condition: "!inscattering"
`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "haze" || len(p.Nodes) != 2 {
		t.Fatalf("unexpected pipeline %+v", p)
	}
	if p.Nodes[1].Condition != "!inscattering" || p.Nodes[1].DependsOn[0] != "intermediateHaze" {
		t.Fatalf("unexpected node %+v", p.Nodes[1])
	}

	if _, err := ParsePipeline([]byte("nodes: []")); !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a nameless pipeline, got %v", err)
	}
	if _, err := ParsePipeline([]byte("name: [")); err == nil {
		t.Fatal("expected a parse error")
	}

	_, err = ParsePipeline([]byte(`
name: broken
nodes:
  - component: ""
  - component: bloom
    depends_on: [bloom]
  - component: vignette
    condition: "!"
`))
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	for _, field := range []string{"nodes[0].component", "nodes[1].depends_on", "nodes[2].condition"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in     string
		flag   string
		negate bool
	}{
		{"inscattering", "inscattering", false},
		{"!inscattering", "inscattering", true},
		{" ! bloom ", "bloom", true},
	}
	for _, tc := range tests {
		flag, negate := parseCondition(tc.in)
		if flag != tc.flag || negate != tc.negate {
			t.Errorf("parseCondition(%q) = (%q, %v)", tc.in, flag, negate)
		}
	}
}

func TestFilePipelineLoader_Load(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "post"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("name: default\nnodes:\n  - component: world\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "post", "bloom.yml"), []byte("name: bloom\nnodes:\n  - component: bloom\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewFilePipelineLoader(dir)
	for _, name := range []string{"default", "bloom"} {
		p, err := loader.Load(name)
		if err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
		if p.Name != name {
			t.Fatalf("expected %q, got %q", name, p.Name)
		}
	}
	if _, err := loader.Load("missing"); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestResolvePipeline_Includes(t *testing.T) {
	loader := mapLoader{
		"world": {Name: "world", Nodes: []NodeDef{{Component: "world"}}},
		"haze": {Name: "haze", Includes: []string{"world"}, Nodes: []NodeDef{
			{Component: "intermediateHaze", DependsOn: []string{"world"}},
			{Component: "finalHaze", DependsOn: []string{"intermediateHaze"}},
		}},
		"bloom": {Name: "bloom", Includes: []string{"world"}, Nodes: []NodeDef{
			{Component: "bloom", DependsOn: []string{"world"}},
		}},
	}
	root := &Pipeline{Name: "default", Includes: []string{"haze", "bloom"}, Nodes: []NodeDef{
		{Component: "tonemap", DependsOn: []string{"finalHaze", "bloom"}},
	}}

	reg := testRegistry("world", "intermediateHaze", "finalHaze", "bloom", "tonemap")
	g, err := ResolvePipeline(root, reg, loader)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %v", g.Names())
	}
	levels, err := BuildLevels(g)
	if err != nil {
		t.Fatal(err)
	}
	if levels[0][0] != "world" || levels[len(levels)-1][0] != "tonemap" {
		t.Fatalf("unexpected levels %v", levels)
	}
}

func TestResolvePipeline_CircularInclude(t *testing.T) {
	loader := mapLoader{
		"a": {Name: "a", Includes: []string{"b"}},
		"b": {Name: "b", Includes: []string{"a"}},
	}
	_, err := ResolvePipeline(loader["a"], NewRegistry(), loader)
	if !apperrors.IsCode(err, apperrors.ErrCodeCycleDetected) {
		t.Fatalf("expected CYCLE_DETECTED, got %v", err)
	}
}

func TestResolvePipeline_UnknownComponent(t *testing.T) {
	p := &Pipeline{Name: "p", Nodes: []NodeDef{{Component: "ghost"}}}
	if _, err := ResolvePipeline(p, NewRegistry(), nil); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestResolvePipeline_IncludeWithoutLoader(t *testing.T) {
	p := &Pipeline{Name: "p", Includes: []string{"world"}}
	if _, err := ResolvePipeline(p, NewRegistry(), nil); !apperrors.IsCode(err, apperrors.ErrCodeMissingDependency) {
		t.Fatalf("expected MISSING_DEPENDENCY, got %v", err)
	}
}

func TestResolvePipeline_Conditions(t *testing.T) {
	rendering := newRendering(t, false)
	p := &Pipeline{Name: "haze", Nodes: []NodeDef{
		{Component: "finalHaze", Condition: "inscattering"},
		{Component: "fallbackFog", Condition: "!inscattering"},
		{Component: "tonemap", DependsOn: []string{"finalHaze", "fallbackFog"}},
	}}
	reg := testRegistry("finalHaze", "fallbackFog", "tonemap")

	g, err := ResolvePipeline(p, reg, nil, WithConditions(rendering))
	if err != nil {
		t.Fatal(err)
	}
	if rendering.Subscribers(config.FlagInscattering) != 2 {
		t.Fatalf("expected two gates subscribed, got %d", rendering.Subscribers(config.FlagInscattering))
	}

	e := NewEngine()
	res, _ := e.RenderFrame(context.Background(), g)
	if res.NodeResults["finalHaze"].Status != StatusSkipped || res.NodeResults["fallbackFog"].Status != StatusCompleted {
		t.Fatalf("unexpected statuses with flag off: %+v", res.NodeResults)
	}

	_ = rendering.Set(config.FlagInscattering, true)
	res, _ = e.RenderFrame(context.Background(), g)
	if res.NodeResults["finalHaze"].Status != StatusCompleted || res.NodeResults["fallbackFog"].Status != StatusSkipped {
		t.Fatalf("unexpected statuses with flag on: %+v", res.NodeResults)
	}
	if res.NodeResults["tonemap"].Status != StatusCompleted {
		t.Fatal("unconditional nodes always run")
	}

	if err := CloseGraph(g); err != nil {
		t.Fatal(err)
	}
	if rendering.Subscribers(config.FlagInscattering) != 0 {
		t.Fatal("closing the graph must cancel gate subscriptions")
	}
}

func TestResolvePipeline_ConditionErrors(t *testing.T) {
	reg := testRegistry("finalHaze", "bloom")

	p := &Pipeline{Name: "p", Nodes: []NodeDef{{Component: "finalHaze", Condition: "inscattering"}}}
	if _, err := ResolvePipeline(p, reg, nil); !apperrors.IsCode(err, apperrors.ErrCodeMissingDependency) {
		t.Fatalf("expected MISSING_DEPENDENCY without a flag source, got %v", err)
	}

	rendering := newRendering(t, true)
	p = &Pipeline{Name: "p", Nodes: []NodeDef{
		{Component: "finalHaze", Condition: "inscattering"},
		{Component: "bloom", Condition: "fog"},
	}}
	if _, err := ResolvePipeline(p, reg, nil, WithConditions(rendering)); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for an unknown flag, got %v", err)
	}
	if rendering.Subscribers(config.FlagInscattering) != 0 {
		t.Fatal("a failed resolve must cancel the gates it created")
	}

	p = &Pipeline{Name: "p", Nodes: []NodeDef{{Component: "bloom", Condition: "!"}}}
	if _, err := ResolvePipeline(p, reg, nil, WithConditions(rendering)); !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for an empty flag, got %v", err)
	}
}

func TestResolvePipeline_RedefinedIncludedNode(t *testing.T) {
	loader := mapLoader{
		"haze": {Name: "haze", Nodes: []NodeDef{
			{Component: "intermediateHaze", Condition: "inscattering"},
		}},
	}
	reg := testRegistry("intermediateHaze", "world")

	rendering := newRendering(t, false)
	root := &Pipeline{Name: "default", Includes: []string{"haze"}, Nodes: []NodeDef{
		{Component: "world"},
		{Component: "intermediateHaze", Condition: "!inscattering"},
	}}
	_, err := ResolvePipeline(root, reg, loader, WithConditions(rendering))
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a conditional redefinition, got %v", err)
	}
	if rendering.Subscribers(config.FlagInscattering) != 0 {
		t.Fatal("a failed resolve must cancel the gates it created")
	}

	root = &Pipeline{Name: "default", Includes: []string{"haze"}, Nodes: []NodeDef{
		{Component: "world"},
		{Component: "intermediateHaze", DependsOn: []string{"world"}},
	}}
	g, err := ResolvePipeline(root, reg, loader, WithConditions(rendering))
	if err != nil {
		t.Fatal(err)
	}
	defer CloseGraph(g)

	levels, err := BuildLevels(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 2 || levels[0][0] != "world" || levels[1][0] != "intermediateHaze" {
		t.Fatalf("expected the redefinition to add ordering, got %v", levels)
	}
	res, _ := NewEngine().RenderFrame(context.Background(), g)
	if res.NodeResults["intermediateHaze"].Status != StatusSkipped {
		t.Fatal("the included node keeps its gate")
	}
}

func TestResolvePipeline_DependencyCycle(t *testing.T) {
	rendering := newRendering(t, true)
	p := &Pipeline{Name: "p", Nodes: []NodeDef{
		{Component: "a", DependsOn: []string{"b"}, Condition: "inscattering"},
		{Component: "b", DependsOn: []string{"a"}},
	}}
	_, err := ResolvePipeline(p, testRegistry("a", "b"), nil, WithConditions(rendering))
	if !apperrors.IsCode(err, apperrors.ErrCodeCycleDetected) {
		t.Fatalf("expected CYCLE_DETECTED, got %v", err)
	}
	if rendering.Subscribers(config.FlagInscattering) != 0 {
		t.Fatal("a failed resolve must cancel the gates it created")
	}
}

func TestRegistry(t *testing.T) {
	r := testRegistry("b", "a")
	if _, ok := r.Get("a"); !ok {
		t.Fatal("expected a registered")
	}
	if _, ok := r.Get("c"); ok {
		t.Fatal("expected c missing")
	}
	if names := r.List(); names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}

func TestRegistryRegisterNodes(t *testing.T) {
	r := NewRegistry()
	r.RegisterNodes(noop("scene"), noop("tonemap"))
	r.Register("scene", noop("opaque"))

	n, ok := r.Get("scene")
	if !ok || n.Name() != "opaque" {
		t.Fatalf("expected the later registration to win, got %v", n)
	}
	if names := r.List(); len(names) != 2 || names[1] != "tonemap" {
		t.Fatalf("unexpected names %v", names)
	}
}
