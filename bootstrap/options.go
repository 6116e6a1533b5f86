package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/rendergraph/di"
	"github.com/kbukum/rendergraph/logger"
)

// Option customises NewApp. It is not generic over the config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	container       di.Container
	gracefulTimeout *time.Duration
	summaryOut      io.Writer
}

func resolveOptions(opts []Option) appOptions {
	var o appOptions
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// WithLogger bypasses the logging section of the config.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds how long stop hooks and component shutdown may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

func WithContainer(c di.Container) Option {
	return func(o *appOptions) { o.container = c }
}

// WithSummaryOutput sends the startup summary to w instead of stdout.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) { o.summaryOut = w }
}
