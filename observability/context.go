package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FrameInfo identifies the frame a node is processing.
type FrameInfo struct {
	Number    uint64
	RunID     string
	StartTime time.Time
}

// NewFrameInfo starts a frame with a fresh run ID.
func NewFrameInfo(number uint64) *FrameInfo {
	return &FrameInfo{Number: number, RunID: uuid.NewString(), StartTime: time.Now()}
}

// Elapsed returns the time since the frame started.
func (f *FrameInfo) Elapsed() time.Duration {
	return time.Since(f.StartTime)
}

type frameKey struct{}

// WithFrame stores f in ctx.
func WithFrame(ctx context.Context, f *FrameInfo) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// FrameFromContext returns the frame stored in ctx, or nil.
func FrameFromContext(ctx context.Context) *FrameInfo {
	if f, ok := ctx.Value(frameKey{}).(*FrameInfo); ok {
		return f
	}
	return nil
}
