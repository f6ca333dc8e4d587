// Package config loads the scheduler's global configuration and defines
// the on-disk shape of a job configuration file (spec.md §6).
//
// Global configuration is YAML with ${VAR} / ${VAR:-default} environment
// interpolation and an SCHED_ENV selector choosing among per-environment
// files (config/global_<env>.yaml), grounded on
// original_source/comfyui_agent/utils/config_loader.py.
package config
