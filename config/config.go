package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the scheduler's global configuration (spec.md §6, "Global
// configuration").
type Config struct {
	DefaultPriority int    `yaml:"default_priority"`
	RetryLimit      int    `yaml:"retry_limit"`
	PollIntervalMs  int    `yaml:"poll_interval_ms"`
	Paths           Paths  `yaml:"paths"`
	ComfyUI         ComfyUI `yaml:"comfyui"`
}

// Paths groups the filesystem roots the scheduler reads from and writes
// to.
type Paths struct {
	JobsProcessing string `yaml:"jobs_processing"`
	JobsFinished   string `yaml:"jobs_finished"`
	Database       string `yaml:"database"`
}

// ComfyUI groups connection parameters for the inference server.
type ComfyUI struct {
	APIBaseURL     string `yaml:"api_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PollInterval returns PollIntervalMs as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Timeout returns ComfyUI.TimeoutSeconds as a time.Duration.
func (c *ComfyUI) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func applyDefaults(c *Config) {
	if c.DefaultPriority == 0 {
		c.DefaultPriority = 50
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = 2
	}
	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = 1000
	}
	if c.ComfyUI.TimeoutSeconds == 0 {
		c.ComfyUI.TimeoutSeconds = 300
	}
}

func validate(c *Config) error {
	if c.Paths.JobsProcessing == "" {
		return fmt.Errorf("config: paths.jobs_processing is required")
	}
	if c.Paths.JobsFinished == "" {
		return fmt.Errorf("config: paths.jobs_finished is required")
	}
	if c.Paths.Database == "" {
		return fmt.Errorf("config: paths.database is required")
	}
	if c.ComfyUI.APIBaseURL == "" {
		return fmt.Errorf("config: comfyui.api_base_url is required")
	}
	return nil
}

// Load reads and parses the global configuration file at path, applying
// environment-variable interpolation and filling in defaults.
//
// Load does not consult SCHED_ENV itself; use ResolvePath to pick a path
// from the environment selector first, as Load expects a concrete path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	interpolated := InterpolateEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvePath picks a per-environment config file path based on the
// SCHED_ENV environment variable, mirroring the original's E3_ENV
// selector (original_source/comfyui_agent/utils/config_loader.py).
//
// If SCHED_ENV is unset, ResolvePath returns an error rather than
// guessing an environment.
func ResolvePath(configDir string) (string, error) {
	env := os.Getenv("SCHED_ENV")
	if env == "" {
		return "", fmt.Errorf("config: SCHED_ENV environment variable not set (expected e.g. \"alpha\" or \"production\")")
	}
	return fmt.Sprintf("%s/global_%s.yaml", configDir, env), nil
}
