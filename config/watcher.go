package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kbukum/rendergraph/component"
	"github.com/kbukum/rendergraph/logger"
	"github.com/kbukum/rendergraph/pipeline"
)

const (
	watcherName     = "config-watcher"
	defaultDebounce = 100 * time.Millisecond
)

var _ component.Component = (*Watcher)(nil)

// Watcher follows the config file and applies rendering flag edits to a
// Rendering holder while the process runs.
type Watcher struct {
	v         *viper.Viper
	rendering *Rendering
	debounce  time.Duration
	log       *logger.Logger

	updates chan RenderingSettings
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	reloads int
	lastErr error
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a burst of file events is applied.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(log *logger.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log.WithComponent(watcherName) }
}

// NewWatcher creates a watcher over v, which must have a config file set
// (as returned by Load).
func NewWatcher(v *viper.Viper, rendering *Rendering, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		v:         v,
		rendering: rendering,
		debounce:  defaultDebounce,
		log:       logger.Nop(),
		updates:   make(chan RenderingSettings, 16),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the component name.
func (w *Watcher) Name() string { return watcherName }

// Start begins watching the config file. Viper re-reads the file before it
// calls OnConfigChange; the settings are decoded on Viper's goroutine and
// handed over, debounced, to the apply loop.
func (w *Watcher) Start(ctx context.Context) error {
	if w.v.ConfigFileUsed() == "" {
		return fmt.Errorf("config watcher: no config file to watch")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	w.done = make(chan struct{})

	w.v.OnConfigChange(w.onFileEvent)
	w.v.WatchConfig()

	settled := pipeline.Debounce(pipeline.FromChannel[RenderingSettings](w.updates), w.debounce)
	go func() {
		defer close(w.done)
		err := pipeline.Drain(settled, w.apply).Run(runCtx)
		if err != nil && runCtx.Err() == nil {
			w.log.Error("config watch loop stopped", logger.ErrorFields("watch", err))
		}
	}()

	w.log.Info("watching config file", logger.Fields("file", w.v.ConfigFileUsed()))
	return nil
}

// Stop ends the apply loop. Viper's own file watcher has no stop hook; its
// events are dropped once the loop is gone.
func (w *Watcher) Stop(_ context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return nil
}

// Health reports degraded when the last reload failed.
func (w *Watcher) Health(_ context.Context) component.Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastErr != nil {
		return component.Health{Name: watcherName, Status: component.StatusDegraded, Message: w.lastErr.Error()}
	}
	return component.Health{Name: watcherName, Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (w *Watcher) Describe() component.Description {
	return component.Description{Name: "Config Watcher", Type: "config", Details: w.v.ConfigFileUsed()}
}

// Reloads returns how many debounced reloads have been applied.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) onFileEvent(e fsnotify.Event) {
	var s RenderingSettings
	err := w.v.UnmarshalKey("rendering", &s)

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("config reload failed", logger.Fields("file", e.Name, logger.FieldError, err.Error()))
		return
	}
	// Keep the newest settings when the apply loop is behind.
	for {
		select {
		case w.updates <- s:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}

func (w *Watcher) apply(_ context.Context, s RenderingSettings) error {
	changes := w.rendering.Apply(s)

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	w.log.Info("rendering config reloaded", logger.Fields("changes", len(changes)))
	return nil
}
