package dag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/rendergraph/validation"
)

// Pipeline is a composable, YAML-defined graph definition.
type Pipeline struct {
	// Name is the pipeline identifier.
	Name string `yaml:"name"`
	// Description is shown by the console.
	Description string `yaml:"description,omitempty"`
	// Includes lists sub-pipeline names to compose (recursive).
	Includes []string `yaml:"includes,omitempty"`
	// Nodes defines the pipeline's node specifications.
	Nodes []NodeDef `yaml:"nodes"`
}

// NodeDef defines a node within a pipeline.
type NodeDef struct {
	// Component is the registry lookup key for this node.
	Component string `yaml:"component"`
	// DependsOn lists node names this node depends on.
	DependsOn []string `yaml:"depends_on,omitempty"`
	// Condition names a rendering flag that must be true for the node to
	// run; a leading "!" requires it to be false.
	Condition string `yaml:"condition,omitempty"`
}

// parseCondition splits "!flag" into ("flag", true).
func parseCondition(s string) (flag string, negate bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		return strings.TrimSpace(rest), true
	}
	return s, false
}

func (p *Pipeline) validate() error {
	v := validation.New().Required("name", p.Name)
	for i, def := range p.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		v.Required(field+".component", def.Component).
			Custom(!slices.Contains(def.DependsOn, def.Component), field+".depends_on", "must not include the node itself")
		if def.Condition != "" {
			flag, _ := parseCondition(def.Condition)
			v.Required(field+".condition", flag)
		}
	}
	return v.Validate()
}
