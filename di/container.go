package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/kbukum/rendergraph/errors"
	"github.com/kbukum/rendergraph/logger"
)

// RegistrationMode determines how a component is resolved.
type RegistrationMode int

const (
	Eager     RegistrationMode = iota // Initialized on registration
	Lazy                              // Initialized on first resolve
	Singleton                         // Pre-created instance
)

func (m RegistrationMode) String() string {
	switch m {
	case Eager:
		return "eager"
	case Lazy:
		return "lazy"
	case Singleton:
		return "singleton"
	}
	return "unknown"
}

// Container defines the dependency container.
type Container interface {
	RegisterLazy(key string, constructor any) error
	RegisterEager(key string, constructor any) error
	RegisterSingleton(key string, instance any) error
	Resolve(key string) (any, error)
	MustResolve(key string) any
	Registrations() []RegistrationInfo
	Close() error
}

// RegistrationInfo describes a registered component.
type RegistrationInfo struct {
	Key         string
	Mode        RegistrationMode
	Initialized bool
}

type registration struct {
	key         string
	constructor any
	mode        RegistrationMode
	instance    any
	initialized bool
	resolving   bool
}

type container struct {
	mu    sync.Mutex
	regs  map[string]*registration
	order []string
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{regs: make(map[string]*registration)}
}

func (c *container) add(reg *registration) error {
	if _, exists := c.regs[reg.key]; exists {
		return errors.AlreadyExists("component", reg.key)
	}
	c.regs[reg.key] = reg
	c.order = append(c.order, reg.key)
	return nil
}

// RegisterLazy registers a constructor run on first Resolve. Constructors
// may take nothing, a context.Context or the Container, and return the
// instance or (instance, error).
func (c *container) RegisterLazy(key string, constructor any) error {
	if err := checkConstructor(constructor); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&registration{key: key, constructor: constructor, mode: Lazy})
}

// RegisterEager runs constructor now and registers its result.
func (c *container) RegisterEager(key string, constructor any) error {
	if err := checkConstructor(constructor); err != nil {
		return err
	}
	instance, err := c.call(constructor)
	if err != nil {
		return fmt.Errorf("failed to initialize eager component '%s': %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&registration{key: key, mode: Eager, instance: instance, initialized: true})
}

// RegisterSingleton registers a pre-created instance.
func (c *container) RegisterSingleton(key string, instance any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&registration{key: key, mode: Singleton, instance: instance, initialized: true})
}

// Resolve returns the instance registered under key, constructing it if
// it is lazy. Construction runs without the container lock so lazy
// constructors can resolve their own dependencies.
func (c *container) Resolve(key string) (any, error) {
	c.mu.Lock()
	reg, ok := c.regs[key]
	if !ok {
		c.mu.Unlock()
		return nil, errors.NotFound("component", key).WithDetail("reason", "not registered")
	}
	if reg.initialized {
		instance := reg.instance
		c.mu.Unlock()
		return instance, nil
	}
	if reg.resolving {
		c.mu.Unlock()
		return nil, errors.New(errors.ErrCodeCycleDetected,
			fmt.Sprintf("component %s depends on itself", key))
	}
	reg.resolving = true
	constructor := reg.constructor
	c.mu.Unlock()

	instance, err := c.call(constructor)

	c.mu.Lock()
	defer c.mu.Unlock()
	reg.resolving = false
	if err != nil {
		logger.Debug("lazy component initialization failed", logger.Fields(
			logger.FieldComponent, key, logger.FieldError, err.Error()))
		return nil, fmt.Errorf("failed to initialize lazy component '%s': %w", key, err)
	}
	reg.instance = instance
	reg.initialized = true
	logger.Debug("lazy component initialized", logger.Fields(logger.FieldComponent, key))
	return instance, nil
}

// MustResolve is Resolve that panics on error.
func (c *container) MustResolve(key string) any {
	instance, err := c.Resolve(key)
	if err != nil {
		panic(err)
	}
	return instance
}

// Registrations lists registered components in registration order.
func (c *container) Registrations() []RegistrationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RegistrationInfo, 0, len(c.order))
	for _, key := range c.order {
		reg := c.regs[key]
		out = append(out, RegistrationInfo{Key: key, Mode: reg.mode, Initialized: reg.initialized})
	}
	return out
}

// Close closes every initialized io.Closer instance, newest first.
func (c *container) Close() error {
	c.mu.Lock()
	keys := slices.Clone(c.order)
	c.mu.Unlock()

	var errs []error
	for _, key := range slices.Backward(keys) {
		c.mu.Lock()
		reg := c.regs[key]
		instance, initialized := reg.instance, reg.initialized
		c.mu.Unlock()
		if !initialized {
			continue
		}
		if closer, ok := instance.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
			}
		}
	}
	return stderrors.Join(errs...)
}

var (
	contextType   = reflect.TypeFor[context.Context]()
	containerType = reflect.TypeFor[Container]()
	errorType     = reflect.TypeFor[error]()
)

func checkConstructor(constructor any) error {
	t := reflect.TypeOf(constructor)
	if t == nil || t.Kind() != reflect.Func {
		return errors.InvalidInput("constructor", "must be a function")
	}
	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) != contextType && t.In(0) != containerType {
			return errors.InvalidInput("constructor", "may only take a context.Context or a di.Container")
		}
	default:
		return errors.InvalidInput("constructor", "takes at most one argument")
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return errors.InvalidInput("constructor", "second result must be an error")
		}
	default:
		return errors.InvalidInput("constructor", "must return (instance) or (instance, error)")
	}
	return nil
}

func (c *container) call(constructor any) (any, error) {
	fn := reflect.ValueOf(constructor)
	var args []reflect.Value
	if fn.Type().NumIn() == 1 {
		if fn.Type().In(0) == contextType {
			args = []reflect.Value{reflect.ValueOf(context.Background())}
		} else {
			args = []reflect.Value{reflect.ValueOf(Container(c))}
		}
	}

	results := fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}
