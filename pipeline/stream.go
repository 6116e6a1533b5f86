package pipeline

import "context"

// Iterator pulls values one at a time. Next reports (zero, false, nil) once
// the stream is exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipeline is a lazy stream. Nothing is read until a terminal pulls from it.
type Pipeline[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// Runnable is a terminal bound to its sink.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls until the stream ends, the sink fails or ctx is done.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// FromChannel streams the values received on ch until it is closed.
func FromChannel[T any](ch <-chan T) *Pipeline[T] {
	return &Pipeline[T]{
		open: func(context.Context) Iterator[T] { return chanSource[T](ch) },
	}
}

type chanSource[T any] <-chan T

func (c chanSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case v, ok := <-c:
		if !ok {
			return zero, false, nil
		}
		return v, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (chanSource[T]) Close() error { return nil }

// Drain feeds every value to sink and stops at the first sink error.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{run: func(ctx context.Context) (err error) {
		it := p.open(ctx)
		defer func() {
			if cerr := it.Close(); err == nil {
				err = cerr
			}
		}()
		for {
			v, ok, nerr := it.Next(ctx)
			switch {
			case nerr != nil:
				return nerr
			case !ok:
				return nil
			}
			if err := sink(ctx, v); err != nil {
				return err
			}
		}
	}}
}

// Collect drains p into a slice.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := Drain(p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	}).Run(ctx)
	return out, err
}
