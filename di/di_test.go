package di

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/kbukum/rendergraph/errors"
)

type closer struct {
	name   string
	closed *[]string
	err    error
}

func (c *closer) Close() error {
	*c.closed = append(*c.closed, c.name)
	return c.err
}

func TestRegisterLazyAndResolve(t *testing.T) {
	c := NewContainer()
	calls := 0
	if err := c.RegisterLazy("greeting", func() string {
		calls++
		return "hello"
	}); err != nil {
		t.Fatalf("RegisterLazy failed: %v", err)
	}
	if calls != 0 {
		t.Fatal("lazy constructor must not run on registration")
	}

	for i := 0; i < 2; i++ {
		val, err := c.Resolve("greeting")
		if err != nil || val != "hello" {
			t.Fatalf("expected 'hello', got %v (%v)", val, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one construction, got %d", calls)
	}
}

func TestResolveNotRegistered(t *testing.T) {
	_, err := NewContainer().Resolve("nonexistent")
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRegisterSingleton(t *testing.T) {
	c := NewContainer()
	if err := c.RegisterSingleton("single", 42); err != nil {
		t.Fatal(err)
	}
	if v := c.MustResolve("single"); v != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton("x", 1)
	if err := c.RegisterLazy("x", func() int { return 2 }); !apperrors.IsCode(err, apperrors.ErrCodeAlreadyExists) {
		t.Fatalf("expected ALREADY_EXISTS, got %v", err)
	}
}

func TestRegisterEager(t *testing.T) {
	c := NewContainer()
	called := false
	if err := c.RegisterEager("eager", func() string {
		called = true
		return "eager-value"
	}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("expected constructor to run on registration")
	}

	if err := c.RegisterEager("broken", func() (string, error) {
		return "", errors.New("boom")
	}); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected constructor error, got %v", err)
	}
	if _, err := c.Resolve("broken"); err == nil {
		t.Fatal("a failed eager registration must not be kept")
	}
}

func TestConstructorSignatures(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton("base", "scene")
	_ = c.RegisterLazy("ctx", func(ctx context.Context) (string, error) {
		if ctx == nil {
			return "", errors.New("nil context")
		}
		return "ok", nil
	})
	_ = c.RegisterLazy("derived", func(c Container) (string, error) {
		base, err := Resolve[string](c, "base")
		return base + "+haze", err
	})

	if v, err := Resolve[string](c, "ctx"); err != nil || v != "ok" {
		t.Fatalf("context constructor: %q %v", v, err)
	}
	if v, err := Resolve[string](c, "derived"); err != nil || v != "scene+haze" {
		t.Fatalf("container constructor: %q %v", v, err)
	}
}

func TestInvalidConstructors(t *testing.T) {
	c := NewContainer()
	for name, ctor := range map[string]any{
		"not a function": "nope",
		"bad argument":   func(int) string { return "" },
		"two arguments":  func(context.Context, Container) string { return "" },
		"bad second out": func() (string, string) { return "", "" },
		"no results":     func() {},
	} {
		if err := c.RegisterLazy(name, ctor); !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
			t.Errorf("%s: expected INVALID_INPUT, got %v", name, err)
		}
	}
}

func TestLazyFailureIsRetried(t *testing.T) {
	c := NewContainer()
	fail := true
	_ = c.RegisterLazy("flaky", func() (int, error) {
		if fail {
			return 0, errors.New("not ready")
		}
		return 7, nil
	})
	if _, err := c.Resolve("flaky"); err == nil {
		t.Fatal("expected an error")
	}
	fail = false
	if v, err := c.Resolve("flaky"); err != nil || v != 7 {
		t.Fatalf("expected 7 on retry, got %v (%v)", v, err)
	}
}

func TestSelfDependencyIsCycle(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterLazy("loop", func(c Container) (any, error) {
		return c.Resolve("loop")
	})
	_, err := c.Resolve("loop")
	if !apperrors.IsCode(err, apperrors.ErrCodeCycleDetected) {
		t.Fatalf("expected CYCLE_DETECTED, got %v", err)
	}
}

func TestGenericResolve(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton("n", 3)

	if v := MustResolve[int](c, "n"); v != 3 {
		t.Fatalf("expected 3, got %d", v)
	}
	if _, err := Resolve[string](c, "n"); err == nil || !strings.Contains(err.Error(), "expected string") {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if _, ok := TryResolve[int](c, "missing"); ok {
		t.Fatal("expected missing")
	}
	if v, ok := TryResolve[int](c, "n"); !ok || v != 3 {
		t.Fatal("expected 3")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustResolve[string](c, "n")
}

func TestRegistrations(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton(Names.Rendering, 1)
	_ = c.RegisterLazy(Names.Framebuffers, func() int { return 2 })
	_ = c.RegisterEager(Names.Engine, func() int { return 3 })

	regs := c.Registrations()
	want := []RegistrationInfo{
		{Key: "rendering", Mode: Singleton, Initialized: true},
		{Key: "framebuffers", Mode: Lazy, Initialized: false},
		{Key: "engine", Mode: Eager, Initialized: true},
	}
	if len(regs) != len(want) {
		t.Fatalf("expected %v, got %v", want, regs)
	}
	for i := range want {
		if regs[i] != want[i] {
			t.Fatalf("registration %d: expected %+v, got %+v", i, want[i], regs[i])
		}
	}
	if Lazy.String() != "lazy" || RegistrationMode(9).String() != "unknown" {
		t.Fatal("unexpected mode names")
	}
}

func TestCloseReverseOrder(t *testing.T) {
	var closed []string
	c := NewContainer()
	_ = c.RegisterSingleton("a", &closer{name: "a", closed: &closed})
	_ = c.RegisterLazy("b", func() *closer { return &closer{name: "b", closed: &closed} })
	_ = c.RegisterLazy("unused", func() *closer { return &closer{name: "unused", closed: &closed} })
	_ = c.RegisterSingleton("c", &closer{name: "c", closed: &closed, err: errors.New("busy")})
	_, _ = c.Resolve("b")

	err := c.Close()
	if err == nil || !strings.Contains(err.Error(), "closing c: busy") {
		t.Fatalf("expected joined close error, got %v", err)
	}
	if strings.Join(closed, ",") != "c,b,a" {
		t.Fatalf("expected reverse order of initialized closers, got %v", closed)
	}
}
