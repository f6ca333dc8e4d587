package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Definition describes one catalog entry: where its template graph lives
// and which logical inputs a job configuration must satisfy.
type Definition struct {
	TemplatePath   string   `yaml:"template_path"`
	RequiredInputs []string `yaml:"required_inputs"`
}

// Catalog maps workflow_id to its Definition.
type Catalog map[string]Definition

// LoadCatalog reads the workflow catalog document at path, grounded on
// original_source/comfyui_agent/utils/config_loader.py's load_workflows.
//
// Every entry must declare both template_path and required_inputs;
// entries missing either fail the whole load (spec.md §6).
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: reading catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("workflow: invalid YAML in catalog %s: %w", path, err)
	}

	for id, def := range catalog {
		if def.TemplatePath == "" {
			return nil, fmt.Errorf("workflow: %s missing template_path", id)
		}
		if def.RequiredInputs == nil {
			return nil, fmt.Errorf("workflow: %s missing required_inputs", id)
		}
	}

	return catalog, nil
}

// ResolveTemplatePath returns the definition's template path made absolute
// relative to baseDir if it isn't already.
func ResolveTemplatePath(baseDir string, def Definition) string {
	if filepath.IsAbs(def.TemplatePath) {
		return def.TemplatePath
	}
	return filepath.Join(baseDir, def.TemplatePath)
}
