package config

// JobConfig is the on-disk declarative record a producer writes into the
// processing directory tree (spec.md §3, §6: "Job Configuration").
//
// Additional keys beyond the ones modeled here are preserved on disk but
// not interpreted, per spec.md §6.
type JobConfig struct {
	JobType    string         `yaml:"job_type"`
	WorkflowID string         `yaml:"workflow_id"`
	Priority   *int           `yaml:"priority,omitempty"`
	RetryLimit *int           `yaml:"retry_limit,omitempty"`
	Inputs     map[string]any `yaml:"inputs"`
	Outputs    OutputsConfig  `yaml:"outputs"`
}

// OutputsConfig carries the destination hint for generated artifacts.
type OutputsConfig struct {
	FilePath string `yaml:"file_path"`
}

// Defaults holds the normalization defaults sourced from the global
// configuration (spec.md §4.5 "Normalization").
type Defaults struct {
	DefaultPriority int
	RetryLimit      int
}
