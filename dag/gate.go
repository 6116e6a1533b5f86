package dag

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
)

// Gate decides whether a node runs. Its predicate is evaluated on every
// IsEnabled call, so the answer always follows live configuration; flag
// notifications are only counted and logged.
type Gate struct {
	name string
	log  *logger.Logger

	mu        sync.Mutex
	predicate func() bool
	subs      map[subKey]config.Handle
	closed    bool

	notifications atomic.Int64
	failing       atomic.Bool
}

type subKey struct {
	source config.Subscribable
	flag   config.Flag
}

var _ config.Observer = (*Gate)(nil)

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the gate logger.
func WithGateLogger(log *logger.Logger) GateOption {
	return func(g *Gate) { g.log = log }
}

// NewGate creates an open gate for the node called name.
func NewGate(name string, opts ...GateOption) *Gate {
	g := &Gate{
		name: name,
		log:  logger.Nop(),
		subs: make(map[subKey]config.Handle),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithNode(name)
	return g
}

// Name returns the name of the gated node.
func (g *Gate) Name() string { return g.name }

// RequiresCondition makes predicate the gate's condition, replacing any
// earlier one. A nil predicate opens the gate again.
func (g *Gate) RequiresCondition(predicate func() bool) {
	g.mu.Lock()
	g.predicate = predicate
	g.mu.Unlock()
	g.failing.Store(false)
}

// IsEnabled evaluates the condition. Without one the gate is open. A
// predicate that panics closes the gate for this call.
func (g *Gate) IsEnabled() (enabled bool) {
	g.mu.Lock()
	predicate := g.predicate
	g.mu.Unlock()

	if predicate == nil {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			enabled = false
			// Only the first of a run of failures is logged.
			if !g.failing.Swap(true) {
				err := errors.ConditionFailed(g.name, r)
				g.log.Error("condition panicked, node disabled", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}()

	enabled = predicate()
	if g.failing.Swap(false) {
		g.log.Info("condition recovered")
	}
	return enabled
}

// Subscribe registers the gate for changes of flag on source. Subscribing
// again to the same flag on the same source is a no-op. Source must be
// comparable, which pointer implementations are.
func (g *Gate) Subscribe(source config.Subscribable, flag config.Flag) error {
	if source == nil {
		return errors.InvalidInput("source", "must not be nil")
	}
	if !reflect.TypeOf(source).Comparable() {
		return errors.InvalidInput("source", "must be comparable")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return errors.Closed("gate " + g.name)
	}
	key := subKey{source: source, flag: flag}
	if _, ok := g.subs[key]; ok {
		return nil
	}
	sub, err := source.Subscribe(flag, g)
	if err != nil {
		return err
	}
	if isNil(sub) {
		return errors.Internal(fmt.Errorf("subscribing %s to %q: source returned no handle", g.name, flag))
	}
	g.subs[key] = sub
	g.log.Debug("subscribed to rendering flag", logger.Fields(logger.FieldFlag, string(flag)))
	return nil
}

// OnConfigChange implements config.Observer.
func (g *Gate) OnConfigChange(change config.Change) {
	g.notifications.Add(1)
	g.log.Debug("rendering flag changed", logger.Fields(
		logger.FieldFlag, string(change.Flag),
		"value", change.New,
	))
}

// Notifications returns how many flag changes the gate has been told about.
func (g *Gate) Notifications() int64 {
	return g.notifications.Load()
}

// Subscriptions returns the number of flags the gate is subscribed to.
func (g *Gate) Subscriptions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close cancels every subscription. Further Subscribe calls fail; the
// condition keeps working.
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	for key, sub := range g.subs {
		sub.Cancel()
		delete(g.subs, key)
	}
	return nil
}

func isNil(h config.Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Interface, reflect.Chan, reflect.Slice:
		return v.IsNil()
	}
	return false
}
