package nodes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/rendergraph/dag"
	apperrors "github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/fbo"
	"github.com/kbukum/rendergraph/validation"
)

// BlurProgram is the shader program name blur passes use.
const BlurProgram = "blur"

// BlurConfig describes a blur stage.
type BlurConfig struct {
	// Label names the node in logs, traces and metrics.
	Label  string     `yaml:"label" validate:"required"`
	Input  fbo.Config `yaml:"input"`
	Output fbo.Config `yaml:"output"`
	Radius float32    `yaml:"radius" validate:"gt=0"`
}

// Framebuffers is the part of fbo.Manager a blur stage needs.
type Framebuffers interface {
	Request(cfg fbo.Config) (*fbo.FBO, error)
	Get(urn string) (*fbo.FBO, error)
	Release(urn string) error
}

// Blur blurs Input into Output with a fixed radius.
type Blur struct {
	cfg    BlurConfig
	fbos   Framebuffers
	shader Shader

	closeOnce sync.Once
	closeErr  error
}

var _ dag.Node = (*Blur)(nil)

// NewBlur validates cfg and requests both framebuffers. They are released
// by Close.
func NewBlur(cfg BlurConfig, fbos Framebuffers, shader Shader) (*Blur, error) {
	if fbos == nil {
		return nil, apperrors.MissingDependency("blur "+cfg.Label, "framebuffers")
	}
	if shader == nil {
		return nil, apperrors.MissingDependency("blur "+cfg.Label, "shader")
	}
	cfg.Input.ApplyDefaults()
	cfg.Output.ApplyDefaults()
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Input.URN == cfg.Output.URN {
		return nil, apperrors.InvalidInput("output", "must differ from input")
	}

	if _, err := fbos.Request(cfg.Input); err != nil {
		return nil, fmt.Errorf("blur %s: input: %w", cfg.Label, err)
	}
	if _, err := fbos.Request(cfg.Output); err != nil {
		_ = fbos.Release(cfg.Input.URN)
		return nil, fmt.Errorf("blur %s: output: %w", cfg.Label, err)
	}

	return &Blur{cfg: cfg, fbos: fbos, shader: shader}, nil
}

// Name returns the stage label.
func (b *Blur) Name() string { return b.cfg.Label }

// Config returns the stage configuration.
func (b *Blur) Config() BlurConfig { return b.cfg }

// Process looks up the live framebuffers and issues one blur pass. The
// output handle is published in the frame state under its URN.
func (b *Blur) Process(ctx context.Context, frame *dag.Frame) error {
	in, err := b.fbos.Get(b.cfg.Input.URN)
	if err != nil {
		return err
	}
	out, err := b.fbos.Get(b.cfg.Output.URN)
	if err != nil {
		return err
	}

	if err := b.shader.Apply(ctx, Pass{
		Program: BlurProgram,
		Input:   in,
		Output:  out,
		Radius:  b.cfg.Radius,
	}); err != nil {
		return fmt.Errorf("blur %s: %w", b.cfg.Label, err)
	}

	if frame != nil && frame.State != nil {
		dag.Write(frame.State, OutputPort(b.cfg.Output.URN), out)
	}
	return nil
}

// Close releases both framebuffer requests. It is safe to call twice.
func (b *Blur) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = errors.Join(
			b.fbos.Release(b.cfg.Input.URN),
			b.fbos.Release(b.cfg.Output.URN),
		)
	})
	return b.closeErr
}

// OutputPort is the frame state slot a stage writing urn fills.
func OutputPort(urn string) dag.Port[*fbo.FBO] {
	return dag.Port[*fbo.FBO]{Key: "fbo:" + urn}
}
