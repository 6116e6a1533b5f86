package pipeline

import (
	"context"
	"time"
)

// Debounce emits only the latest value of each burst, once quiet has elapsed
// with no new value. A burst still pending when the source ends is flushed.
func Debounce[T any](p *Pipeline[T], quiet time.Duration) *Pipeline[T] {
	return &Pipeline[T]{open: func(ctx context.Context) Iterator[T] {
		src := p.open(ctx)
		pumpCtx, stop := context.WithCancel(ctx)
		d := &debouncer[T]{
			src:   src,
			quiet: quiet,
			stop:  stop,
			recv:  make(chan pulled[T], 1),
		}
		go d.pump(pumpCtx)
		return d
	}}
}

type pulled[T any] struct {
	v   T
	err error
}

type debouncer[T any] struct {
	src   Iterator[T]
	quiet time.Duration
	stop  context.CancelFunc
	recv  chan pulled[T]
}

// pump forwards source values until the source ends or fails.
func (d *debouncer[T]) pump(ctx context.Context) {
	defer close(d.recv)
	for {
		v, ok, err := d.src.Next(ctx)
		if !ok && err == nil {
			return
		}
		select {
		case d.recv <- pulled[T]{v: v, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (d *debouncer[T]) Next(ctx context.Context) (T, bool, error) {
	var (
		latest  T
		pending bool
		fire    <-chan time.Time
	)
	timer := time.NewTimer(d.quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case p, open := <-d.recv:
			if !open {
				return latest, pending, nil
			}
			if p.err != nil {
				var zero T
				return zero, false, p.err
			}
			latest, pending = p.v, true
			timer.Reset(d.quiet)
			fire = timer.C
		case <-fire:
			return latest, true, nil
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

func (d *debouncer[T]) Close() error {
	d.stop()
	return d.src.Close()
}
