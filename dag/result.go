package dag

import (
	"time"

	"github.com/kbukum/rendergraph/observability"
)

// Node outcomes.
const (
	StatusCompleted = observability.StatusCompleted
	StatusSkipped   = observability.StatusSkipped
	StatusFailed    = observability.StatusFailed
)

// Result holds the outcome of one frame.
type Result struct {
	Frame       uint64
	NodeResults map[string]NodeResult
	// Order lists visited nodes in walk order.
	Order    []string
	Duration time.Duration
}

// NodeResult holds the outcome of a single node visit.
type NodeResult struct {
	Name     string
	Status   string // "completed" | "skipped" | "failed"
	Duration time.Duration
	Error    error
}

// Count returns how many nodes ended with status.
func (r *Result) Count(status string) int {
	n := 0
	for _, nr := range r.NodeResults {
		if nr.Status == status {
			n++
		}
	}
	return n
}

// Failed reports whether any node failed.
func (r *Result) Failed() bool {
	return r.Count(StatusFailed) > 0
}
