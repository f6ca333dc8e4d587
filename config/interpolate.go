package config

import (
	"os"
	"regexp"
	"strings"
)

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// InterpolateEnv replaces ${VAR} and ${VAR:-default} occurrences in s with
// environment variable values, grounded on
// original_source/comfyui_agent/utils/config_loader.py's
// _interpolate_env_vars. Unlike the original (which recursed over a
// parsed YAML tree), interpolation here runs once over the raw document
// text before YAML parsing, which is equivalent for scalar string values
// and simpler to reason about.
//
// A reference to an unset variable with no default is left untouched,
// matching the original's fallback behavior.
func InterpolateEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		expr := match[2 : len(match)-1] // strip "${" and "}"
		if name, def, ok := strings.Cut(expr, ":-"); ok {
			if v, present := os.LookupEnv(name); present {
				return v
			}
			return def
		}
		if v, present := os.LookupEnv(expr); present {
			return v
		}
		return match
	})
}
