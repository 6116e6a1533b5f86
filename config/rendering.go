package config

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
)

// Flag names a boolean rendering setting.
type Flag string

const (
	FlagInscattering Flag = "inscattering"
	FlagBloom        Flag = "bloom"
	FlagMotionBlur   Flag = "motion_blur"
	FlagOutline      Flag = "outline"
	FlagSSAO         Flag = "ssao"
	FlagLightShafts  Flag = "light_shafts"
	FlagVignette     Flag = "vignette"
	FlagFilmGrain    Flag = "film_grain"
)

// RenderingSettings is the file/env view of the rendering flags.
type RenderingSettings struct {
	Inscattering bool `yaml:"inscattering" mapstructure:"inscattering"`
	Bloom        bool `yaml:"bloom" mapstructure:"bloom"`
	MotionBlur   bool `yaml:"motion_blur" mapstructure:"motion_blur"`
	Outline      bool `yaml:"outline" mapstructure:"outline"`
	SSAO         bool `yaml:"ssao" mapstructure:"ssao"`
	LightShafts  bool `yaml:"light_shafts" mapstructure:"light_shafts"`
	Vignette     bool `yaml:"vignette" mapstructure:"vignette"`
	FilmGrain    bool `yaml:"film_grain" mapstructure:"film_grain"`
}

// DefaultRenderingSettings mirrors the engine's shipped defaults.
func DefaultRenderingSettings() RenderingSettings {
	return RenderingSettings{
		Inscattering: true,
		Bloom:        true,
		Outline:      true,
		SSAO:         false,
		LightShafts:  true,
		Vignette:     true,
	}
}

// RenderingDefaults registers the rendering defaults on v under "rendering.".
func RenderingDefaults(v *viper.Viper) {
	for flag, value := range DefaultRenderingSettings().values() {
		v.SetDefault("rendering."+string(flag), value)
	}
}

func (s RenderingSettings) values() map[Flag]bool {
	return map[Flag]bool{
		FlagInscattering: s.Inscattering,
		FlagBloom:        s.Bloom,
		FlagMotionBlur:   s.MotionBlur,
		FlagOutline:      s.Outline,
		FlagSSAO:         s.SSAO,
		FlagLightShafts:  s.LightShafts,
		FlagVignette:     s.Vignette,
		FlagFilmGrain:    s.FilmGrain,
	}
}

// Change describes one flag transition.
type Change struct {
	Flag Flag `json:"flag"`
	Old  bool `json:"old"`
	New  bool `json:"new"`
}

// Observer is notified after a subscribed flag changes value.
type Observer interface {
	OnConfigChange(change Change)
}

// Handle cancels a subscription.
type Handle interface {
	Cancel()
}

// Subscribable is a source of flag change notifications.
type Subscribable interface {
	Subscribe(flag Flag, observer Observer) (Handle, error)
}

// subscriber is one registered observer. Repeated subscriptions of the same
// observer share it and hold one reference each.
type subscriber struct {
	id       string
	flag     Flag
	observer Observer
	refs     int
}

// Subscription is the Handle returned by Rendering.Subscribe. Every call
// gets its own Subscription; cancelling one leaves the others in place.
type Subscription struct {
	entry     *subscriber
	source    *Rendering
	once      sync.Once
	cancelled atomic.Bool
}

// ID returns the identifier of the underlying registration.
func (s *Subscription) ID() string { return s.entry.id }

// Flag returns the subscribed flag.
func (s *Subscription) Flag() Flag { return s.entry.flag }

// Cancel drops this handle's reference. Calling it more than once, or on a
// zero Subscription, is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.source == nil {
		return
	}
	s.once.Do(func() {
		s.cancelled.Store(true)
		s.source.release(s.entry)
	})
}

// Active reports whether the handle still holds its registration.
func (s *Subscription) Active() bool {
	if s == nil || s.source == nil || s.cancelled.Load() {
		return false
	}
	return s.source.contains(s.entry)
}

// Rendering holds the live rendering flags. Reads and writes are guarded by
// a read/write mutex so a predicate running on the frame goroutine always
// sees a consistent value while the watcher or console writes from another.
// Observers run on the writer's goroutine after the lock is released.
type Rendering struct {
	mu     sync.RWMutex
	values map[Flag]bool
	subs   map[Flag][]*subscriber
	log    *logger.Logger
}

var _ Subscribable = (*Rendering)(nil)

// NewRendering creates the live holder from settings.
func NewRendering(settings RenderingSettings, log *logger.Logger) *Rendering {
	if log == nil {
		log = logger.Nop()
	}
	return &Rendering{
		values: settings.values(),
		subs:   make(map[Flag][]*subscriber),
		log:    log.WithComponent("rendering-config"),
	}
}

// Inscattering reports whether the atmospheric in-scattering effect is on.
func (r *Rendering) Inscattering() bool {
	return r.Bool(FlagInscattering)
}

// Bool returns the current value of flag; unknown flags read as false.
func (r *Rendering) Bool(flag Flag) bool {
	v, _ := r.Lookup(flag)
	return v
}

// Lookup returns the value of flag and whether the flag exists.
func (r *Rendering) Lookup(flag Flag) (bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[flag]
	return v, ok
}

// Flags returns the sorted names of all known flags.
func (r *Rendering) Flags() []Flag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Flag, 0, len(r.values))
	for f := range r.values {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns a copy of all flag values.
func (r *Rendering) Snapshot() map[Flag]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Flag]bool, len(r.values))
	for f, v := range r.values {
		out[f] = v
	}
	return out
}

// Set assigns flag and notifies its observers when the value changed.
func (r *Rendering) Set(flag Flag, value bool) error {
	r.mu.Lock()
	old, ok := r.values[flag]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("rendering flag", string(flag))
	}
	if old == value {
		r.mu.Unlock()
		return nil
	}
	r.values[flag] = value
	subs := slices.Clone(r.subs[flag])
	r.mu.Unlock()

	r.notify(subs, Change{Flag: flag, Old: old, New: value})
	return nil
}

// Apply assigns every flag from settings and returns the changes, in flag
// name order, after notifying observers of each.
func (r *Rendering) Apply(settings RenderingSettings) []Change {
	next := settings.values()

	r.mu.Lock()
	var changes []Change
	for flag, value := range next {
		if old, ok := r.values[flag]; ok && old != value {
			changes = append(changes, Change{Flag: flag, Old: old, New: value})
			r.values[flag] = value
		}
	}
	slices.SortFunc(changes, func(a, b Change) int {
		if a.Flag < b.Flag {
			return -1
		}
		if a.Flag > b.Flag {
			return 1
		}
		return 0
	})
	pending := make([][]*subscriber, len(changes))
	for i, c := range changes {
		pending[i] = slices.Clone(r.subs[c.Flag])
	}
	r.mu.Unlock()

	for i, c := range changes {
		r.notify(pending[i], c)
	}
	return changes
}

// Subscribe registers observer for changes to flag. Subscribing the same
// observer to the same flag again reuses its registration, so an observer is
// never notified twice for one change; it stays registered until every
// returned handle is cancelled.
func (r *Rendering) Subscribe(flag Flag, observer Observer) (Handle, error) {
	if observer == nil {
		return nil, errors.InvalidInput("observer", "must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.values[flag]; !ok {
		return nil, errors.NotFound("rendering flag", string(flag))
	}
	for _, existing := range r.subs[flag] {
		if sameObserver(existing.observer, observer) {
			existing.refs++
			return &Subscription{entry: existing, source: r}, nil
		}
	}

	entry := &subscriber{
		id:       uuid.NewString(),
		flag:     flag,
		observer: observer,
		refs:     1,
	}
	r.subs[flag] = append(r.subs[flag], entry)
	r.log.Debug("observer subscribed", logger.Fields(logger.FieldFlag, string(flag), "subscription", entry.id))
	return &Subscription{entry: entry, source: r}, nil
}

// Subscribers returns the number of active subscriptions to flag.
func (r *Rendering) Subscribers(flag Flag) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[flag])
}

func (r *Rendering) release(entry *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.refs--; entry.refs > 0 {
		return
	}
	r.subs[entry.flag] = slices.DeleteFunc(r.subs[entry.flag], func(s *subscriber) bool {
		return s == entry
	})
}

func (r *Rendering) contains(entry *subscriber) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.subs[entry.flag], entry)
}

func (r *Rendering) notify(subs []*subscriber, change Change) {
	r.log.Debug("rendering flag changed", logger.Fields(
		logger.FieldFlag, string(change.Flag),
		"value", change.New,
		"observers", len(subs),
	))
	for _, s := range subs {
		s.observer.OnConfigChange(change)
	}
}

// sameObserver compares observers without panicking on uncomparable
// dynamic types (func or map based observers are never deduplicated).
func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// ObserverFunc adapts a function to Observer. Function observers cannot be
// compared, so subscribing one twice creates two subscriptions.
type ObserverFunc func(change Change)

// OnConfigChange calls f(change).
func (f ObserverFunc) OnConfigChange(change Change) { f(change) }
