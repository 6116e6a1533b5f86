package fbo

// FBO is a live framebuffer handle. A handle is replaced, not mutated, when
// the display resolution changes; Generation counts those replacements.
type FBO struct {
	ID         string
	URN        string
	Width      int
	Height     int
	Format     Format
	Generation int
}

// Observer is told when the manager has regenerated its framebuffers.
type Observer interface {
	OnFBOsRegenerated(width, height int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(width, height int)

// OnFBOsRegenerated calls f(width, height).
func (f ObserverFunc) OnFBOsRegenerated(width, height int) { f(width, height) }
