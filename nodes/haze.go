package nodes

import (
	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/dag"
	apperrors "github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/fbo"
	"github.com/kbukum/rendergraph/logger"
)

// Haze framebuffers.
const (
	IntermediateHaze = "engine:intermediateHaze"
	FinalHaze        = "engine:finalHaze"
)

// HazeBlurRadius is the blur radius of every haze pass.
const HazeBlurRadius float32 = 8

// HazeOption configures NewHaze.
type HazeOption func(*hazeOptions)

type hazeOptions struct {
	log *logger.Logger
}

// WithHazeLogger sets the logger of the haze node's gate.
func WithHazeLogger(log *logger.Logger) HazeOption {
	return func(o *hazeOptions) { o.log = log }
}

// NewHaze builds a haze stage: a blur of radius HazeBlurRadius from input
// into output that runs only while inscattering is enabled. Closing the
// returned node cancels its flag subscription and releases its
// framebuffers.
func NewHaze(rendering *config.Rendering, fbos Framebuffers, shader Shader, input, output fbo.Config, label string, opts ...HazeOption) (*dag.GatedNode, error) {
	if rendering == nil {
		return nil, apperrors.MissingDependency("haze "+label, "rendering config")
	}
	o := hazeOptions{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	blur, err := NewBlur(BlurConfig{
		Label:  label,
		Input:  input,
		Output: output,
		Radius: HazeBlurRadius,
	}, fbos, shader)
	if err != nil {
		return nil, err
	}

	gate := dag.NewGate(label, dag.WithGateLogger(o.log))
	gate.RequiresCondition(rendering.Inscattering)
	if err := gate.Subscribe(rendering, config.FlagInscattering); err != nil {
		_ = blur.Close()
		return nil, err
	}
	return dag.Gated(blur, gate), nil
}

// HazeGraph adds the two haze passes to g: scene into the intermediate
// buffer at one-eighth scale, then into the final buffer at one-sixteenth
// scale. scene names the node producing the scene buffer, or is empty.
func HazeGraph(g *dag.Graph, rendering *config.Rendering, fbos Framebuffers, shader Shader, sceneFBO fbo.Config, scene string, opts ...HazeOption) error {
	intermediate, err := NewHaze(rendering, fbos, shader,
		sceneFBO,
		fbo.Config{URN: IntermediateHaze, Scale: fbo.OneEighthScale},
		"intermediateHaze", opts...)
	if err != nil {
		return err
	}
	final, err := NewHaze(rendering, fbos, shader,
		fbo.Config{URN: IntermediateHaze, Scale: fbo.OneEighthScale},
		fbo.Config{URN: FinalHaze, Scale: fbo.OneSixteenthScale},
		"finalHaze", opts...)
	if err != nil {
		_ = intermediate.Close()
		return err
	}

	if err := g.Add(intermediate, final); err != nil {
		_ = intermediate.Close()
		_ = final.Close()
		return err
	}
	if scene != "" {
		g.Connect(scene, intermediate.Name())
	}
	g.Connect(intermediate.Name(), final.Name())
	return nil
}
