package server

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/rendergraph/component"
	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/dag"
	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/observability"
)

const consoleName = "console"

var (
	_ component.Component   = (*Console)(nil)
	_ component.Describable = (*Console)(nil)
)

// HealthChecker returns health for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// NodeView is one entry of GET /nodes.
type NodeView struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Conditional bool   `json:"conditional"`
}

// FlagUpdate is the body of PUT /rendering/:flag and its response.
type FlagUpdate struct {
	Flag  config.Flag `json:"flag,omitempty"`
	Value *bool       `json:"value" binding:"required"`
}

// Console is the developer console component.
type Console struct {
	server    *Server
	rendering *config.Rendering
	health    HealthChecker
	service   string
	version   string
	graph     atomic.Pointer[dag.Graph]
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithHealth sets the source of GET /health component results.
func WithHealth(checker HealthChecker) ConsoleOption {
	return func(c *Console) { c.health = checker }
}

// WithService sets the service identity reported by GET /health.
func WithService(name, version string) ConsoleOption {
	return func(c *Console) {
		c.service = name
		c.version = version
	}
}

// NewConsole creates the console over rendering. cfg must already have
// defaults applied.
func NewConsole(cfg Config, rendering *config.Rendering, log *logger.Logger, opts ...ConsoleOption) (*Console, error) {
	if rendering == nil {
		return nil, errors.MissingDependency(consoleName, "rendering config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.InvalidInput("console", err.Error())
	}
	c := &Console{
		server:    New(cfg, log),
		rendering: rendering,
		service:   "rendergraph",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.routes(c.server.GinEngine())
	return c, nil
}

// SetGraph publishes the graph listed by GET /nodes.
func (c *Console) SetGraph(g *dag.Graph) {
	c.graph.Store(g)
}

// Handler returns the console's root handler.
func (c *Console) Handler() http.Handler {
	return c.server.Handler()
}

// Addr returns the listen address.
func (c *Console) Addr() string {
	return c.server.Addr()
}

func (c *Console) routes(r *gin.Engine) {
	r.GET("/health", c.getHealth)
	r.GET("/nodes", c.getNodes)
	r.GET("/rendering", c.getRendering)
	r.PUT("/rendering/:flag", c.putFlag)
}

func (c *Console) getHealth(ctx *gin.Context) {
	sh := observability.NewServiceHealth(c.service, c.version)
	if c.health != nil {
		for _, h := range c.health(ctx.Request.Context()) {
			sh.AddComponent(h)
		}
	}
	status := http.StatusOK
	if sh.Status == component.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, sh)
}

func (c *Console) getNodes(ctx *gin.Context) {
	g := c.graph.Load()
	if g == nil {
		RespondWithError(ctx, errors.NotFound("graph", "render"))
		return
	}
	names := g.Names()
	out := make([]NodeView, 0, len(names))
	for _, name := range names {
		n := g.Nodes[name]
		_, conditional := n.(dag.Conditional)
		out = append(out, NodeView{Name: name, Enabled: dag.Enabled(n), Conditional: conditional})
	}
	RespondOK(ctx, out)
}

func (c *Console) getRendering(ctx *gin.Context) {
	RespondOK(ctx, c.rendering.Snapshot())
}

func (c *Console) putFlag(ctx *gin.Context) {
	var req FlagUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondWithError(ctx, errors.InvalidInput("value", err.Error()))
		return
	}
	flag := config.Flag(ctx.Param("flag"))
	if err := c.rendering.Set(flag, *req.Value); err != nil {
		RespondWithError(ctx, err)
		return
	}
	RespondOK(ctx, FlagUpdate{Flag: flag, Value: req.Value})
}

// Name implements component.Component.
func (c *Console) Name() string { return consoleName }

// Start implements component.Component.
func (c *Console) Start(ctx context.Context) error {
	return c.server.Start(ctx)
}

// Stop implements component.Component.
func (c *Console) Stop(ctx context.Context) error {
	return c.server.Stop(ctx)
}

// Health implements component.Component.
func (c *Console) Health(_ context.Context) component.Health {
	if !c.server.Serving() {
		return component.Health{Name: consoleName, Status: component.StatusUnhealthy, Message: "not serving"}
	}
	return component.Health{Name: consoleName, Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (c *Console) Describe() component.Description {
	return component.Description{Name: "Developer console", Type: "server", Details: "http://" + c.Addr()}
}
