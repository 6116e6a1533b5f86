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

// StageConfig describes a single shader pass writing Output. Input is
// optional; a stage without one draws from scratch.
type StageConfig struct {
	Label   string      `yaml:"label" validate:"required"`
	Program string      `yaml:"program" validate:"required"`
	Input   *fbo.Config `yaml:"input,omitempty"`
	Output  fbo.Config  `yaml:"output"`
}

// Stage runs one shader program per frame.
type Stage struct {
	cfg    StageConfig
	fbos   Framebuffers
	shader Shader

	closeOnce sync.Once
	closeErr  error
}

var _ dag.Node = (*Stage)(nil)

// NewStage validates cfg and requests its framebuffers.
func NewStage(cfg StageConfig, fbos Framebuffers, shader Shader) (*Stage, error) {
	if fbos == nil {
		return nil, apperrors.MissingDependency("stage "+cfg.Label, "framebuffers")
	}
	if shader == nil {
		return nil, apperrors.MissingDependency("stage "+cfg.Label, "shader")
	}
	cfg.Output.ApplyDefaults()
	if cfg.Input != nil {
		in := *cfg.Input
		in.ApplyDefaults()
		cfg.Input = &in
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Input != nil && cfg.Input.URN == cfg.Output.URN {
		return nil, apperrors.InvalidInput("output", "must differ from input")
	}

	if cfg.Input != nil {
		if _, err := fbos.Request(*cfg.Input); err != nil {
			return nil, fmt.Errorf("stage %s: input: %w", cfg.Label, err)
		}
	}
	if _, err := fbos.Request(cfg.Output); err != nil {
		if cfg.Input != nil {
			_ = fbos.Release(cfg.Input.URN)
		}
		return nil, fmt.Errorf("stage %s: output: %w", cfg.Label, err)
	}
	return &Stage{cfg: cfg, fbos: fbos, shader: shader}, nil
}

// Name returns the stage label.
func (s *Stage) Name() string { return s.cfg.Label }

// Process applies the program and publishes the output handle.
func (s *Stage) Process(ctx context.Context, frame *dag.Frame) error {
	pass := Pass{Program: s.cfg.Program}
	if s.cfg.Input != nil {
		in, err := s.fbos.Get(s.cfg.Input.URN)
		if err != nil {
			return err
		}
		pass.Input = in
	}
	out, err := s.fbos.Get(s.cfg.Output.URN)
	if err != nil {
		return err
	}
	pass.Output = out

	if err := s.shader.Apply(ctx, pass); err != nil {
		return fmt.Errorf("stage %s: %w", s.cfg.Label, err)
	}
	if frame != nil && frame.State != nil {
		dag.Write(frame.State, OutputPort(s.cfg.Output.URN), out)
	}
	return nil
}

// Close releases the framebuffer requests. It is safe to call twice.
func (s *Stage) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.cfg.Input != nil {
			errs = append(errs, s.fbos.Release(s.cfg.Input.URN))
		}
		errs = append(errs, s.fbos.Release(s.cfg.Output.URN))
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
