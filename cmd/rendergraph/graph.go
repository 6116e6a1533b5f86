package main

import (
	"errors"
	"fmt"

	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/dag"
	"github.com/kbukum/rendergraph/fbo"
	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/nodes"
)

const (
	sceneURN    = "engine:sceneOpaque"
	bloomURN    = "engine:bloom"
	vignetteURN = "engine:vignette"
	finalURN    = "engine:final"
)

var sceneFBO = fbo.Config{URN: sceneURN, Format: fbo.FormatHDR}

// graphDeps are the collaborators the render graph is built from.
type graphDeps struct {
	rendering *config.Rendering
	fbos      *fbo.Manager
	shader    nodes.Shader
	loader    dag.PipelineLoader
	pipeline  string
	log       *logger.Logger
	trace     bool
}

// stageRegistry builds the components pipeline files may refer to. The
// caller owns the returned nodes until they are placed in a graph.
func stageRegistry(d graphDeps) (*dag.Registry, []dag.Node, error) {
	scene := nodes.StageConfig{Label: "scene", Program: "opaque", Output: sceneFBO}
	bloom := nodes.BlurConfig{
		Label:  "bloom",
		Input:  sceneFBO,
		Output: fbo.Config{URN: bloomURN, Scale: fbo.QuarterScale, Format: fbo.FormatHDR},
		Radius: 4,
	}
	vignette := nodes.StageConfig{Label: "vignette", Program: "vignette", Input: &sceneFBO,
		Output: fbo.Config{URN: vignetteURN, Scale: fbo.HalfScale}}
	tonemap := nodes.StageConfig{Label: "tonemap", Program: "tonemap", Input: &sceneFBO,
		Output: fbo.Config{URN: finalURN}}

	var built []dag.Node
	fail := func(err error) (*dag.Registry, []dag.Node, error) {
		for _, n := range built {
			_ = dag.CloseNode(n)
		}
		return nil, nil, err
	}

	for _, cfg := range []nodes.StageConfig{scene, vignette, tonemap} {
		s, err := nodes.NewStage(cfg, d.fbos, d.shader)
		if err != nil {
			return fail(err)
		}
		built = append(built, s)
	}
	b, err := nodes.NewBlur(bloom, d.fbos, d.shader)
	if err != nil {
		return fail(err)
	}
	built = append(built, b)

	registry := dag.NewRegistry()
	registry.RegisterNodes(built...)
	return registry, built, nil
}

// buildGraph resolves the pipeline file, adds the haze passes between the
// scene and tone mapping, and decorates every node.
func buildGraph(d graphDeps) (*dag.Graph, error) {
	registry, built, err := stageRegistry(d)
	if err != nil {
		return nil, err
	}

	p, err := d.loader.Load(d.pipeline)
	if err != nil {
		return nil, closeAll(built, err)
	}
	g, err := dag.ResolvePipeline(p, registry, d.loader,
		dag.WithConditions(d.rendering),
		dag.WithResolveLogger(d.log))
	if err != nil {
		return nil, closeAll(built, err)
	}
	// Registry nodes the pipeline did not use are released here.
	for _, n := range built {
		if _, used := g.Nodes[n.Name()]; !used {
			_ = dag.CloseNode(n)
		}
	}

	if _, ok := g.Nodes["scene"]; !ok {
		_ = g.Close()
		return nil, fmt.Errorf("pipeline %s: haze needs a scene node", d.pipeline)
	}
	if err := nodes.HazeGraph(g, d.rendering, d.fbos, d.shader, sceneFBO, "scene",
		nodes.WithHazeLogger(d.log)); err != nil {
		return nil, errors.Join(err, g.Close())
	}
	if _, ok := g.Nodes["tonemap"]; ok {
		g.Connect("finalHaze", "tonemap")
	}

	if _, err := dag.BuildLevels(g); err != nil {
		return nil, errors.Join(err, g.Close())
	}

	for name, n := range g.Nodes {
		if d.trace {
			n = dag.WithTracing(n, "render.node")
		}
		g.Nodes[name] = dag.WithLogging(n, d.log)
	}
	return g, nil
}

func closeAll(built []dag.Node, err error) error {
	errs := []error{err}
	for _, n := range built {
		errs = append(errs, dag.CloseNode(n))
	}
	return errors.Join(errs...)
}
