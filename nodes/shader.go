package nodes

import (
	"context"
	"slices"
	"sync"

	"github.com/kbukum/rendergraph/fbo"
)

// Pass is one shader program invocation from Input into Output.
type Pass struct {
	Program string
	Input   *fbo.FBO
	Output  *fbo.FBO
	Radius  float32
}

// Shader runs passes. A GPU backend implements it; the blur maths lives
// there, not in the graph.
type Shader interface {
	Apply(ctx context.Context, pass Pass) error
}

// RecordingShader keeps the passes it is given. The demo binary and tests
// use it in place of a GPU backend.
type RecordingShader struct {
	// Keep bounds the retained passes to the most recent Keep. Zero keeps
	// every pass.
	Keep int

	mu     sync.Mutex
	passes []Pass
	total  int
}

// Apply records pass.
func (s *RecordingShader) Apply(_ context.Context, pass Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.passes = append(s.passes, pass)
	if s.Keep > 0 && len(s.passes) > s.Keep {
		s.passes = slices.Delete(s.passes, 0, len(s.passes)-s.Keep)
	}
	return nil
}

// Total returns the number of passes applied, retained or not.
func (s *RecordingShader) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Passes returns a copy of the recorded passes.
func (s *RecordingShader) Passes() []Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Pass(nil), s.passes...)
}
