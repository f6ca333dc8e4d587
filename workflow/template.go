package workflow

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is one node of a ComfyUI workflow graph: a class type plus its
// input parameter map. Inputs is mutated in place by BindInputs.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Template is a loaded workflow graph: node id -> Node.
type Template map[string]*Node

// LoadTemplate reads and parses the JSON workflow graph document at path
// (spec.md §6).
func LoadTemplate(path string) (Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: template not found: %s", path)
	}

	var tmpl Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return nil, fmt.Errorf("workflow: invalid JSON in template %s: %w", path, err)
	}
	return tmpl, nil
}

// Clone returns a deep-enough copy of the template suitable for per-job
// mutation by BindInputs without affecting the loaded template
// (workflow templates are immutable once loaded, spec.md §3).
func (t Template) Clone() Template {
	out := make(Template, len(t))
	for id, node := range t {
		inputs := make(map[string]any, len(node.Inputs))
		for k, v := range node.Inputs {
			inputs[k] = v
		}
		out[id] = &Node{ClassType: node.ClassType, Inputs: inputs}
	}
	return out
}
