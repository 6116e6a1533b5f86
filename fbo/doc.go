// Package fbo keeps track of the framebuffers render-graph nodes read from
// and write to.
//
// Framebuffers are named by a resource URN and sized as a fraction of the
// display resolution. The Manager hands out reference-counted handles:
//
//	m := fbo.NewManager(1920, 1080)
//	buf, err := m.Request(fbo.Config{URN: "engine:finalHaze", Scale: fbo.OneSixteenthScale})
//	defer m.Release("engine:finalHaze")
//
// Resize regenerates every live framebuffer and notifies observers, so
// nodes look handles up with Get on every frame instead of caching them.
// No GPU memory is allocated; a handle only carries identity and size.
package fbo
