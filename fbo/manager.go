package fbo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/rendergraph/component"
	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
)

const componentName = "fbo-manager"

var _ component.Component = (*Manager)(nil)

type entry struct {
	cfg  Config
	fbo  *FBO
	refs int
}

// Manager owns the display-resolution dependent framebuffers.
type Manager struct {
	mu        sync.RWMutex
	width     int
	height    int
	entries   map[string]*entry
	observers []*observerEntry
	closed    bool
	log       *logger.Logger
}

type observerEntry struct {
	o Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log.WithComponent(componentName) }
}

// NewManager creates a manager for a display of width x height pixels.
func NewManager(width, height int, opts ...Option) *Manager {
	m := &Manager{
		width:   max(width, 1),
		height:  max(height, 1),
		entries: make(map[string]*entry),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Request returns the framebuffer for cfg, creating it on first request.
// Every Request must be paired with a Release of the same URN. Requesting an
// existing URN with a different scale or format is an error.
func (m *Manager) Request(cfg Config) (*FBO, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.Closed(componentName)
	}
	if e, ok := m.entries[cfg.URN]; ok {
		if e.cfg != cfg {
			return nil, errors.InvalidInput("fbo", fmt.Sprintf(
				"%s already exists as %s/%s", cfg.URN, e.cfg.Scale, e.cfg.Format))
		}
		e.refs++
		return e.fbo, nil
	}

	e := &entry{cfg: cfg, fbo: m.generate(cfg, 0), refs: 1}
	m.entries[cfg.URN] = e
	m.log.Debug("framebuffer created", logger.Fields(
		logger.FieldURN, cfg.URN, "width", e.fbo.Width, "height", e.fbo.Height))
	return e.fbo, nil
}

// Get returns the current handle for urn.
func (m *Manager) Get(urn string) (*FBO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[urn]
	if !ok {
		return nil, errors.NotFound("fbo", urn)
	}
	return e.fbo, nil
}

// Release drops one reference to urn. The framebuffer is disposed of when
// the last reference goes.
func (m *Manager) Release(urn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[urn]
	if !ok {
		return errors.NotFound("fbo", urn)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.entries, urn)
		m.log.Debug("framebuffer disposed", logger.Fields(logger.FieldURN, urn))
	}
	return nil
}

// Refs returns the number of outstanding requests for urn.
func (m *Manager) Refs(urn string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[urn]; ok {
		return e.refs
	}
	return 0
}

// URNs returns the live framebuffer URNs in sorted order.
func (m *Manager) URNs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urns := make([]string, 0, len(m.entries))
	for urn := range m.entries {
		urns = append(urns, urn)
	}
	slices.Sort(urns)
	return urns
}

// Resolution returns the current display resolution.
func (m *Manager) Resolution() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.width, m.height
}

// Resize regenerates every framebuffer for the new display resolution and
// then notifies observers, outside the lock.
func (m *Manager) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.InvalidInput("resolution", fmt.Sprintf("%dx%d is not positive", width, height))
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.Closed(componentName)
	}
	if width == m.width && height == m.height {
		m.mu.Unlock()
		return nil
	}
	m.width, m.height = width, height
	for _, e := range m.entries {
		e.fbo = m.generate(e.cfg, e.fbo.Generation+1)
	}
	observers := make([]Observer, len(m.observers))
	for i, oe := range m.observers {
		observers[i] = oe.o
	}
	m.mu.Unlock()

	m.log.Info("framebuffers regenerated", logger.Fields("width", width, "height", height))
	for _, o := range observers {
		o.OnFBOsRegenerated(width, height)
	}
	return nil
}

// Subscribe registers o for regeneration events and returns a function that
// removes it.
func (m *Manager) Subscribe(o Observer) func() {
	oe := &observerEntry{o: o}
	m.mu.Lock()
	m.observers = append(m.observers, oe)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.observers = slices.DeleteFunc(m.observers, func(x *observerEntry) bool { return x == oe })
		})
	}
}

func (m *Manager) generate(cfg Config, generation int) *FBO {
	w, h := cfg.dimensions(m.width, m.height)
	return &FBO{
		ID:         uuid.NewString(),
		URN:        cfg.URN,
		Width:      w,
		Height:     h,
		Format:     cfg.Format,
		Generation: generation,
	}
}

// Name implements component.Component.
func (m *Manager) Name() string { return componentName }

// Start implements component.Component.
func (m *Manager) Start(_ context.Context) error {
	m.log.Info("framebuffer manager started", logger.Fields("width", m.width, "height", m.height))
	return nil
}

// Stop disposes of every framebuffer. Later requests fail with CLOSED.
func (m *Manager) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.entries); n > 0 {
		m.log.Warn("disposing framebuffers still in use", logger.Fields("count", n))
	}
	clear(m.entries)
	m.closed = true
	return nil
}

// Health implements component.Component.
func (m *Manager) Health(_ context.Context) component.Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "closed"}
	}
	return component.Health{
		Name:    componentName,
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d framebuffers at %dx%d", len(m.entries), m.width, m.height),
	}
}

// Describe implements component.Describable.
func (m *Manager) Describe() component.Description {
	w, h := m.Resolution()
	return component.Description{Name: "Framebuffers", Type: "fbo", Details: fmt.Sprintf("%dx%d", w, h)}
}
