package dag

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kbukum/rendergraph/errors"
)

// State holds the values nodes publish for later nodes within one frame,
// typically the framebuffer each stage wrote.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewState() *State {
	return &State{values: map[string]any{}}
}

func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok
}

// Set overwrites any earlier value published under key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Keys lists the published keys in sorted order.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Port names a State slot and fixes the type stored in it.
type Port[T any] struct {
	Key string
}

// Read returns NOT_FOUND when nothing was published under the port and
// INVALID_INPUT when the slot holds another type.
func Read[T any](state *State, port Port[T]) (T, error) {
	var zero T
	raw, ok := state.Get(port.Key)
	if !ok {
		return zero, errors.NotFound("state key", port.Key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, errors.InvalidInput(port.Key, fmt.Sprintf("holds %T, want %T", raw, zero))
	}
	return v, nil
}

func Write[T any](state *State, port Port[T], value T) {
	state.Set(port.Key, value)
}
