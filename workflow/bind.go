package workflow

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// saveImageClassType is the ComfyUI node class recognized for filename
// output-path handling (spec.md §4.3.d, §6).
const saveImageClassType = "SaveImage"

// BindInputs writes job input values into the matching node-qualified
// slots of tmpl, and sets the filename-prefix of any SaveImage-class node
// to the stem of outputFilePath, if provided.
//
// Each input key is either node-qualified (e.g. "45_text", "31_seed" —
// split on the first underscore into a node id and parameter name) or a
// bare logical name, which BindInputs ignores: logical names are resolved
// by the validate package at ingest time (spec.md §4.5) and are not
// expected to correspond to a literal template slot.
//
// Grounded on original_source/comfyui_agent/executor.py's build_payload.
func BindInputs(tmpl Template, inputs map[string]any, outputFilePath string, log *slog.Logger) {
	for key, value := range inputs {
		nodeID, param, ok := strings.Cut(key, "_")
		if !ok {
			continue
		}
		node, exists := tmpl[nodeID]
		if !exists || node.Inputs == nil {
			continue
		}
		if _, hasParam := node.Inputs[param]; !hasParam {
			if log != nil {
				log.Warn("parameter not found in node", "node_id", nodeID, "param", param)
			}
			continue
		}
		node.Inputs[param] = value
		if log != nil {
			log.Debug("bound input", "key", key, "node_id", nodeID, "param", param)
		}
	}

	if outputFilePath == "" {
		return
	}
	stem := strings.TrimSuffix(filepath.Base(outputFilePath), filepath.Ext(outputFilePath))
	for _, node := range tmpl {
		if node.ClassType == saveImageClassType && node.Inputs != nil {
			node.Inputs["filename_prefix"] = stem
		}
	}
}
