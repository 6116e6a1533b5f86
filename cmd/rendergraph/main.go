// Command rendergraph runs the haze render graph against an in-memory
// framebuffer manager and a recording shader, with live rendering flags
// driven by the config file and the developer console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/kbukum/rendergraph/bootstrap"
	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/dag"
	"github.com/kbukum/rendergraph/di"
	"github.com/kbukum/rendergraph/fbo"
	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/nodes"
	"github.com/kbukum/rendergraph/observability"
	"github.com/kbukum/rendergraph/server"
)

const (
	serviceName = "rendergraph"
	graphLogger = "render-graph"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configFile := fs.String("config", "", "path to config.yml")
	frames := fs.Int("frames", -1, "stop after this many frames (overrides loop.frames)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	var cfg AppConfig
	v, err := config.Load(serviceName, &cfg, opts...)
	if err != nil {
		return err
	}
	if *frames >= 0 {
		cfg.Loop.Frames = *frames
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			app.Logger.Warn("telemetry shutdown failed", logger.ErrorFields("telemetry shutdown", err))
		}
	}()

	if err := wire(app, v); err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		return renderLoop(ctx, app)
	})
}

// wire registers components and dependencies. The graph is lazy: it is
// resolved in the configure phase once the framebuffer manager has started.
func wire(app *bootstrap.App[*AppConfig], v *viper.Viper) error {
	cfg := app.Cfg
	c := app.Container
	log := app.Logger

	logger.RegisterComponents(log, graphLogger)

	rendering := config.NewRendering(cfg.Rendering, log)
	fbos := fbo.NewManager(cfg.Display.Width, cfg.Display.Height, fbo.WithLogger(log))
	shader := &nodes.RecordingShader{Keep: 64}
	metrics, err := observability.NewRenderMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}

	singletons := []struct {
		key      string
		instance any
	}{
		{di.Names.Config, cfg},
		{di.Names.Logger, log},
		{di.Names.Rendering, rendering},
		{di.Names.Framebuffers, fbos},
		{di.Names.Shader, shader},
		{di.Names.Metrics, metrics},
	}
	for _, s := range singletons {
		if err := c.RegisterSingleton(s.key, s.instance); err != nil {
			return err
		}
	}

	if err := c.RegisterLazy(di.Names.Graph, func() (*dag.Graph, error) {
		return buildGraph(graphDeps{
			rendering: rendering,
			fbos:      fbos,
			shader:    shader,
			loader:    dag.NewFilePipelineLoader(cfg.Pipeline.Dir),
			pipeline:  cfg.Pipeline.Name,
			log:       logger.Get(graphLogger),
			trace:     cfg.Observability.Enabled,
		})
	}); err != nil {
		return err
	}
	if err := c.RegisterLazy(di.Names.Engine, func() *dag.Engine {
		return dag.NewEngine(dag.WithEngineLogger(log), dag.WithEngineMetrics(metrics))
	}); err != nil {
		return err
	}

	if err := app.RegisterComponent(fbos); err != nil {
		return err
	}
	if v.ConfigFileUsed() != "" {
		watcher := config.NewWatcher(v, rendering, config.WithWatcherLogger(log))
		if err := c.RegisterSingleton(di.Names.Watcher, watcher); err != nil {
			return err
		}
		if err := app.RegisterComponent(watcher); err != nil {
			return err
		}
	}

	var console *server.Console
	if cfg.Console.Enabled {
		console, err = server.NewConsole(cfg.Console, rendering, log,
			server.WithService(cfg.Name, cfg.Version),
			server.WithHealth(app.Components.HealthAll))
		if err != nil {
			return err
		}
		if err := c.RegisterSingleton(di.Names.Console, console); err != nil {
			return err
		}
		if err := app.RegisterComponent(console); err != nil {
			return err
		}
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*AppConfig]) error {
		g, err := di.Resolve[*dag.Graph](a.Container, di.Names.Graph)
		if err != nil {
			return err
		}
		levels, err := dag.BuildLevels(g)
		if err != nil {
			return err
		}
		for _, level := range levels {
			a.Summary.TrackNodes(level...)
		}
		if console != nil {
			console.SetGraph(g)
		}
		return nil
	})
	return nil
}

// renderLoop runs the frame loop until the context ends or the configured
// frame budget is spent.
func renderLoop(ctx context.Context, app *bootstrap.App[*AppConfig]) error {
	g, err := di.Resolve[*dag.Graph](app.Container, di.Names.Graph)
	if err != nil {
		return err
	}
	engine, err := di.Resolve[*dag.Engine](app.Container, di.Names.Engine)
	if err != nil {
		return err
	}

	n, err := engine.Run(ctx, g, dag.RunOptions{
		Interval: app.Cfg.Loop.Interval,
		Frames:   app.Cfg.Loop.Frames,
		OnFrame: func(res *dag.Result) {
			if res.Failed() {
				app.Logger.Warn("frame had failures", logger.Fields(
					logger.FieldFrame, res.Frame,
					"failed", res.Count(dag.StatusFailed)))
			}
		},
	})
	app.Logger.Info("render loop finished", logger.Fields("frames", n))
	return err
}
