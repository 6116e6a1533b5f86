// Package di is the dependency container used at the composition root.
//
// Library packages never look collaborators up; they take them as
// constructor parameters. The binary registers what it builds here and
// resolves typed values when wiring the graph:
//
//	c := di.NewContainer()
//	_ = c.RegisterSingleton(di.Names.Rendering, rendering)
//	_ = c.RegisterLazy(di.Names.Framebuffers, func(c di.Container) (*fbo.Manager, error) { ... })
//	fbos, err := di.Resolve[*fbo.Manager](c, di.Names.Framebuffers)
package di
