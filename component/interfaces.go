package component

import "context"

// Component is a long-lived piece of render infrastructure (framebuffer
// manager, config watcher, developer console) started before the first frame
// and stopped after the last one. Name must be unique within a Registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is what a component reports to the console's /health route.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Describable components add a line to the startup summary.
type Describable interface {
	Describe() Description
}

// Description is one startup summary line. An empty Name falls back to the
// component's Name().
type Description struct {
	Name    string
	Type    string
	Details string
}
