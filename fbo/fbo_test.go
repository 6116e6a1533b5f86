package fbo

import (
	"context"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/rendergraph/component"
	"github.com/kbukum/rendergraph/errors"
)

const (
	intermediate = "engine:intermediateHaze"
	final        = "engine:finalHaze"
)

func TestRequestSizesFromDisplay(t *testing.T) {
	m := NewManager(1920, 1080)
	tests := []struct {
		urn   string
		scale Scale
		w, h  int
	}{
		{"engine:full", FullScale, 1920, 1080},
		{"engine:half", HalfScale, 960, 540},
		{"engine:quarter", QuarterScale, 480, 270},
		{"engine:eighth", OneEighthScale, 240, 135},
		{"engine:sixteenth", OneSixteenthScale, 120, 67},
	}
	for _, tc := range tests {
		t.Run(tc.urn, func(t *testing.T) {
			buf, err := m.Request(Config{URN: tc.urn, Scale: tc.scale})
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if buf.Width != tc.w || buf.Height != tc.h {
				t.Fatalf("expected %dx%d, got %dx%d", tc.w, tc.h, buf.Width, buf.Height)
			}
			if buf.Format != FormatDefault {
				t.Fatalf("expected default format, got %q", buf.Format)
			}
		})
	}
}

func TestRequestNeverBelowOnePixel(t *testing.T) {
	m := NewManager(4, 4)
	buf, err := m.Request(Config{URN: "engine:tiny", Scale: OneSixteenthScale})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Width != 1 || buf.Height != 1 {
		t.Fatalf("expected 1x1, got %dx%d", buf.Width, buf.Height)
	}
}

func TestRequestInvalidConfig(t *testing.T) {
	m := NewManager(800, 600)
	for _, cfg := range []Config{
		{URN: ""},
		{URN: "finalHaze"},
		{URN: final, Scale: 2},
		{URN: final, Format: "rgba32"},
	} {
		if _, err := m.Request(cfg); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Request(%+v): expected INVALID_INPUT, got %v", cfg, err)
		}
	}
}

func TestRequestIsReferenceCounted(t *testing.T) {
	m := NewManager(800, 600)
	cfg := Config{URN: final, Scale: QuarterScale}

	a, _ := m.Request(cfg)
	b, _ := m.Request(cfg)
	if a != b {
		t.Fatal("expected the same handle for the same config")
	}
	if m.Refs(final) != 2 {
		t.Fatalf("expected 2 refs, got %d", m.Refs(final))
	}

	if err := m.Release(final); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(final); err != nil {
		t.Fatalf("framebuffer should survive while referenced: %v", err)
	}
	if err := m.Release(final); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(final); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND after last release, got %v", err)
	}
	if err := m.Release(final); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND on over-release, got %v", err)
	}
}

func TestRequestConflictingConfig(t *testing.T) {
	m := NewManager(800, 600)
	if _, err := m.Request(Config{URN: final, Scale: HalfScale}); err != nil {
		t.Fatal(err)
	}
	_, err := m.Request(Config{URN: final, Scale: QuarterScale})
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a conflicting request, got %v", err)
	}
	if m.Refs(final) != 1 {
		t.Fatalf("conflicting request must not take a reference, got %d", m.Refs(final))
	}
}

func TestResizeRegeneratesAndNotifies(t *testing.T) {
	m := NewManager(800, 600)
	before, _ := m.Request(Config{URN: intermediate, Scale: HalfScale, Format: FormatHDR})

	var got [][2]int
	unsubscribe := m.Subscribe(ObserverFunc(func(w, h int) {
		// Handles must already be regenerated when observers run.
		buf, err := m.Get(intermediate)
		if err != nil || buf.Width != w/2 {
			t.Errorf("observer saw a stale framebuffer: %+v %v", buf, err)
		}
		got = append(got, [2]int{w, h})
	}))

	if err := m.Resize(1600, 1200); err != nil {
		t.Fatal(err)
	}
	after, _ := m.Get(intermediate)
	if after == before || after.ID == before.ID {
		t.Fatal("expected a new handle after resize")
	}
	if after.Width != 800 || after.Height != 600 || after.Generation != 1 || after.Format != FormatHDR {
		t.Fatalf("unexpected regenerated handle %+v", after)
	}

	if err := m.Resize(1600, 1200); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	unsubscribe()
	if err := m.Resize(640, 480); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || got[0] != [2]int{1600, 1200} {
		t.Fatalf("expected one notification, got %v", got)
	}
}

func TestResizeRejectsNonPositive(t *testing.T) {
	m := NewManager(800, 600)
	if err := m.Resize(0, 600); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestManagerComponentLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(800, 600)
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	_, _ = m.Request(Config{URN: final})
	if h := m.Health(ctx); h.Status != component.StatusHealthy {
		t.Fatalf("expected healthy, got %+v", h)
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if len(m.URNs()) != 0 {
		t.Fatal("expected no framebuffers after stop")
	}
	if _, err := m.Request(Config{URN: final}); !errors.IsCode(err, errors.ErrCodeClosed) {
		t.Fatalf("expected CLOSED after stop, got %v", err)
	}
	if h := m.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Fatalf("expected unhealthy after stop, got %+v", h)
	}
}

func TestScaleYAML(t *testing.T) {
	var cfg struct {
		A Scale `yaml:"a"`
		B Scale `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: quarter\nb: 0.5\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.A != QuarterScale || cfg.B != HalfScale {
		t.Fatalf("unexpected scales %v %v", cfg.A, cfg.B)
	}
	if err := yaml.Unmarshal([]byte("a: huge\n"), &cfg); err == nil {
		t.Fatal("expected error for unknown scale keyword")
	}
}
