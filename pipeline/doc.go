// Package pipeline provides lazy, pull-based event streams.
//
// The render graph uses it to coalesce bursts of configuration-file events
// (editors often emit several writes per save) before re-reading the file:
//
//	events := pipeline.FromChannel(ch)
//	settled := pipeline.Debounce(events, 100*time.Millisecond)
//	pipeline.Drain(settled, reload).Run(ctx)
package pipeline
