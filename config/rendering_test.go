package config

import (
	"testing"

	"github.com/kbukum/rendergraph/errors"
)

type recordingObserver struct {
	changes []Change
}

func (o *recordingObserver) OnConfigChange(c Change) { o.changes = append(o.changes, c) }

func TestRendering_SetNotifiesOnChange(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	obs := &recordingObserver{}
	if _, err := r.Subscribe(FlagInscattering, obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Set(FlagInscattering, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Set(FlagInscattering, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Set(FlagBloom, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs.changes) != 1 {
		t.Fatalf("expected exactly one notification, got %v", obs.changes)
	}
	if got := obs.changes[0]; got != (Change{Flag: FlagInscattering, Old: false, New: true}) {
		t.Fatalf("unexpected change %+v", got)
	}
	if !r.Inscattering() {
		t.Fatal("expected inscattering=true")
	}
}

func TestRendering_ObserverReadsNewValue(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	var seen bool
	_, _ = r.Subscribe(FlagInscattering, ObserverFunc(func(Change) {
		seen = r.Inscattering()
	}))
	_ = r.Set(FlagInscattering, true)
	if !seen {
		t.Fatal("observer should read the value it was notified about")
	}
}

func TestRendering_UnknownFlag(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	if err := r.Set("fog", true); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND on Set, got %v", err)
	}
	if _, err := r.Subscribe("fog", &recordingObserver{}); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND on Subscribe, got %v", err)
	}
	if _, ok := r.Lookup("fog"); ok {
		t.Fatal("unknown flag should not be found")
	}
	if r.Bool("fog") {
		t.Fatal("unknown flag should read false")
	}
}

func TestRendering_SubscribeNilObserver(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	if _, err := r.Subscribe(FlagBloom, nil); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestRendering_SubscribeIsIdempotent(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	obs := &recordingObserver{}

	first, _ := r.Subscribe(FlagInscattering, obs)
	second, _ := r.Subscribe(FlagInscattering, obs)
	if first.(*Subscription).ID() != second.(*Subscription).ID() {
		t.Fatal("expected a repeated subscribe to share the registration")
	}
	if n := r.Subscribers(FlagInscattering); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}

	_ = r.Set(FlagInscattering, true)
	if len(obs.changes) != 1 {
		t.Fatalf("expected no duplicate notifications, got %d", len(obs.changes))
	}
}

func TestRendering_SharedSubscriptionIsReferenceCounted(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	obs := &recordingObserver{}

	first, _ := r.Subscribe(FlagInscattering, obs)
	second, _ := r.Subscribe(FlagInscattering, obs)

	first.Cancel()
	first.Cancel()
	if first.(*Subscription).Active() {
		t.Fatal("a cancelled handle must report inactive")
	}
	if !second.(*Subscription).Active() || r.Subscribers(FlagInscattering) != 1 {
		t.Fatal("cancelling one handle must keep the other registered")
	}
	_ = r.Set(FlagInscattering, true)
	if len(obs.changes) != 1 {
		t.Fatalf("expected the remaining handle to be notified, got %d", len(obs.changes))
	}

	second.Cancel()
	if n := r.Subscribers(FlagInscattering); n != 0 {
		t.Fatalf("expected no subscribers after both cancels, got %d", n)
	}
	_ = r.Set(FlagInscattering, false)
	if len(obs.changes) != 1 {
		t.Fatal("a fully cancelled observer must not be notified")
	}
}

func TestSubscription_ZeroValueCancel(t *testing.T) {
	var nilSub *Subscription
	nilSub.Cancel()
	(&Subscription{}).Cancel()
	if (&Subscription{}).Active() {
		t.Fatal("a zero subscription is never active")
	}
}

func TestRendering_FuncObserversAreNotDeduplicated(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	count := 0
	fn := ObserverFunc(func(Change) { count++ })
	_, _ = r.Subscribe(FlagBloom, fn)
	_, _ = r.Subscribe(FlagBloom, fn)
	_ = r.Set(FlagBloom, true)
	if count != 2 {
		t.Fatalf("expected two notifications, got %d", count)
	}
}

func TestSubscription_Cancel(t *testing.T) {
	r := NewRendering(RenderingSettings{}, nil)
	obs := &recordingObserver{}
	handle, _ := r.Subscribe(FlagInscattering, obs)
	sub := handle.(*Subscription)

	if !sub.Active() {
		t.Fatal("expected active subscription")
	}
	if sub.ID() == "" || sub.Flag() != FlagInscattering {
		t.Fatalf("unexpected subscription identity: %q %q", sub.ID(), sub.Flag())
	}

	sub.Cancel()
	sub.Cancel()
	if sub.Active() {
		t.Fatal("expected cancelled subscription")
	}
	_ = r.Set(FlagInscattering, true)
	if len(obs.changes) != 0 {
		t.Fatal("cancelled observer must not be notified")
	}

	again, _ := r.Subscribe(FlagInscattering, obs)
	if again.(*Subscription).ID() == sub.ID() {
		t.Fatal("resubscribing after cancel should create a new registration")
	}
}

func TestRendering_Apply(t *testing.T) {
	r := NewRendering(RenderingSettings{Inscattering: true}, nil)
	obs := &recordingObserver{}
	_, _ = r.Subscribe(FlagInscattering, obs)
	_, _ = r.Subscribe(FlagBloom, obs)

	changes := r.Apply(RenderingSettings{Inscattering: false, Bloom: true})
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", changes)
	}
	if changes[0].Flag != FlagBloom || changes[1].Flag != FlagInscattering {
		t.Fatalf("expected changes sorted by flag, got %v", changes)
	}
	if len(obs.changes) != 2 {
		t.Fatalf("expected 2 notifications, got %v", obs.changes)
	}

	if again := r.Apply(RenderingSettings{Inscattering: false, Bloom: true}); len(again) != 0 {
		t.Fatalf("expected no changes on identical apply, got %v", again)
	}
}

func TestRendering_FlagsAndSnapshot(t *testing.T) {
	r := NewRendering(DefaultRenderingSettings(), nil)
	flags := r.Flags()
	if len(flags) != 8 {
		t.Fatalf("expected 8 flags, got %d", len(flags))
	}
	if flags[0] != FlagBloom {
		t.Fatalf("expected sorted flags, got %v", flags)
	}

	snap := r.Snapshot()
	snap[FlagInscattering] = false
	if !r.Inscattering() {
		t.Fatal("snapshot must be a copy")
	}
}
