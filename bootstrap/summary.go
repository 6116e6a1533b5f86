package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/rendergraph/component"
	"github.com/kbukum/rendergraph/di"
)

// ComponentInfo is one line of the infrastructure section.
type ComponentInfo struct {
	Name    string
	Type    string
	Details string
}

// Summary collects and prints what a binary started with.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	components      []ComponentInfo
	nodes           []string
	out             io.Writer
}

// NewSummary creates a summary that prints to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackComponent adds an infrastructure line. Describable components in
// the registry are tracked automatically.
func (s *Summary) TrackComponent(name, componentType, details string) {
	s.components = append(s.components, ComponentInfo{Name: name, Type: componentType, Details: details})
}

// TrackNodes records the graph's node names in walk order.
func (s *Summary) TrackNodes(names ...string) {
	s.nodes = append(s.nodes, names...)
}

// Display prints the summary including live health from the registry.
// registry and container may be nil.
func (s *Summary) Display(ctx context.Context, registry *component.Registry, container di.Container) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	components := s.collect(registry)
	if len(components) > 0 {
		fmt.Fprintf(w, "\n📊 Infrastructure\n")
		for i, c := range components {
			fmt.Fprintf(w, "   %s %s [%s] %s\n", treePrefix(i, len(components)), c.Name, c.Type, c.Details)
		}
	}

	if len(s.nodes) > 0 {
		fmt.Fprintf(w, "\n🎬 Render graph (%d nodes)\n", len(s.nodes))
		for i, n := range s.nodes {
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(s.nodes)), n)
		}
	}

	if container != nil {
		regs := container.Registrations()
		if len(regs) > 0 {
			fmt.Fprintf(w, "\n🧩 Dependencies\n")
			for i, r := range regs {
				status := "active"
				if !r.Initialized {
					status = "lazy"
				}
				fmt.Fprintf(w, "   %s %s %s (%s)\n", treePrefix(i, len(regs)), statusIcon(status), r.Key, r.Mode)
			}
		}
	}

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status),
					h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}
	fmt.Fprintln(w)
}

func (s *Summary) collect(registry *component.Registry) []ComponentInfo {
	out := append([]ComponentInfo(nil), s.components...)
	if registry == nil {
		return out
	}
	for _, c := range registry.All() {
		d, ok := c.(component.Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		name := desc.Name
		if name == "" {
			name = c.Name()
		}
		out = append(out, ComponentInfo{Name: name, Type: desc.Type, Details: desc.Details})
	}
	return out
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string) string {
	switch status {
	case "active":
		return "✅"
	case "lazy":
		return "⚡"
	default:
		return "⚠️"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
