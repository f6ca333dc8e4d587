package validate

import (
	"fmt"
	"strings"

	"github.com/comfyqueue/scheduler/config"
	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/workflow"
)

// ValidateSchema checks a job configuration against the required top-level
// fields, the workflow catalog, and the workflow's declared required
// inputs (spec.md §4.5), grounded on
// original_source/comfyui_agent/utils/validation.py's
// validate_config_schema.
func ValidateSchema(cfg config.JobConfig, catalog workflow.Catalog) error {
	if cfg.JobType == "" {
		return fmt.Errorf("missing required field: job_type")
	}
	if cfg.WorkflowID == "" {
		return fmt.Errorf("missing required field: workflow_id")
	}
	if cfg.Inputs == nil {
		return fmt.Errorf("missing required field: inputs")
	}
	if cfg.Outputs.FilePath == "" {
		return fmt.Errorf("missing outputs.file_path")
	}

	if _, err := job.ParseType(cfg.JobType); err != nil {
		return fmt.Errorf("invalid job_type: %s", cfg.JobType)
	}

	def, ok := catalog[cfg.WorkflowID]
	if !ok {
		return fmt.Errorf("unknown workflow_id: %s", cfg.WorkflowID)
	}

	if missing := missingRequiredInputs(def.RequiredInputs, cfg.Inputs); len(missing) > 0 {
		return fmt.Errorf("missing required inputs: %s", strings.Join(missing, ", "))
	}

	if cfg.Priority != nil {
		if *cfg.Priority < job.MinPriority || *cfg.Priority > job.MaxPriority {
			return fmt.Errorf("priority must be between %d and %d, got: %d", job.MinPriority, job.MaxPriority, *cfg.Priority)
		}
	}

	return nil
}

// missingRequiredInputs returns the subset of required that is not
// satisfied, per spec.md §4.5's required-inputs check:
//
//   - the input map has the exact key, or
//   - any key ends with "_<name>" (node-qualified form), or
//   - for the special logical name "prompt", any key ends with "_text".
func missingRequiredInputs(required []string, provided map[string]any) []string {
	var missing []string
	for _, name := range required {
		if _, ok := provided[name]; ok {
			continue
		}
		if satisfiedByNodeQualifiedKey(name, provided) {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

func satisfiedByNodeQualifiedKey(name string, provided map[string]any) bool {
	if name == "prompt" {
		for key := range provided {
			if strings.HasSuffix(key, "_text") {
				return true
			}
		}
	}
	suffix := "_" + name
	for key := range provided {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// Normalize fills in priority and retry_limit from defaults when absent
// and clamps priority into range, returning a new JobConfig (the input is
// left unmodified), grounded on
// original_source/comfyui_agent/utils/validation.py's normalize_config.
func Normalize(cfg config.JobConfig, defaults config.Defaults) config.JobConfig {
	out := cfg

	priority := defaults.DefaultPriority
	if cfg.Priority != nil {
		priority = *cfg.Priority
	}
	priority = job.ClampPriority(priority)
	out.Priority = &priority

	retryLimit := defaults.RetryLimit
	if cfg.RetryLimit != nil {
		retryLimit = *cfg.RetryLimit
	}
	out.RetryLimit = &retryLimit

	return out
}
