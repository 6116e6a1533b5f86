package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/rendergraph/component"
	"github.com/kbukum/rendergraph/di"
	"github.com/kbukum/rendergraph/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App owns the lifecycle of a render binary: components start, configure
// callbacks assemble the graph, a task drives frames, and everything is torn
// down in reverse.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*AppConfig]) error {
//	    _, err := di.Resolve[*dag.Graph](a.Container, di.Names.Graph)
//	    return err
//	})
//	err = app.RunTask(ctx, renderLoop)
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Container  di.Container
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// NewApp defaults and validates cfg, then sets up logging. The logging
// section of cfg configures the global logger unless WithLogger is given.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Container:       o.container,
		Logger:          o.logger,
		Summary:         NewSummary(svc.Name, svc.Version),
		gracefulTimeout: defaultGracefulTimeout,
	}
	if app.Container == nil {
		app.Container = di.NewContainer()
	}
	if app.Logger == nil {
		logger.Init(&svc.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summaryOut != nil {
		app.Summary.out = o.summaryOut
	}
	app.Components = component.NewRegistry(app.Logger)
	return app, nil
}

func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback that runs once every component has
// started, which is where the render graph is resolved.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck fails when any component reports anything but healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := fmt.Sprintf("%s=%s", h.Name, h.Status)
		if h.Message != "" {
			entry += fmt.Sprintf(" (%s)", h.Message)
		}
		bad = append(bad, entry)
	}
	if len(bad) == 0 {
		return nil
	}
	return fmt.Errorf("components not ready: %s", strings.Join(bad, ", "))
}

// RunTask starts the app, runs task until it returns or SIGINT/SIGTERM
// arrives, then stops the app. A task error takes precedence over
// shutdown errors.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.Warn("cleanup after failed startup", logger.ErrorFields("stop", stopErr))
		}
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	if ctx.Err() == nil && taskCtx.Err() != nil {
		a.Logger.Info("signal received, render task cancelled")
	}
	cancel()

	stopErr := a.stop()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("starting components: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("start hooks: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuring: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("starting with unhealthy components", logger.ErrorFields("ready check", err))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("ready hooks: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(began))
	a.DisplaySummary(ctx)
	return nil
}

// DisplaySummary prints what is running: components, graph nodes, container
// bindings and health.
func (a *App[C]) DisplaySummary(ctx context.Context) {
	a.Summary.Display(ctx, a.Components, a.Container)
}

// Shutdown tears the app down for callers that drive the lifecycle without
// RunTask.
func (a *App[C]) Shutdown(context.Context) error {
	return a.stop()
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		errs = append(errs, fmt.Errorf("stop hooks: %w", err))
	}
	// Graphs held by the container release framebuffers, so they close
	// before the components that own them stop.
	if err := a.Container.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing container: %w", err))
	}
	if err := a.Components.StopAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping components: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.Logger.Error("shutdown finished with errors", logger.ErrorFields("shutdown", err))
	} else {
		a.Logger.Info("shutdown complete")
	}
	return err
}
