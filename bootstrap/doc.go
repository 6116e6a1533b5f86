// Package bootstrap runs a render binary through a uniform lifecycle:
// typed configuration, logger initialisation, component start in
// registration order, lifecycle hooks, a finite task with signal-driven
// cancellation, and shutdown in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(fbos)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := engine.Run(ctx, graph, dag.RunOptions{Interval: 16 * time.Millisecond})
//	    return err
//	})
package bootstrap
