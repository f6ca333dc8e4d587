package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/comfyqueue/scheduler/job"
)

var (
	timestampRe = regexp.MustCompile(`^[0-9]{14}$`)
	identRe     = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	jobnameRe   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// ParsedName is the decomposed form of a config_name, per spec.md §3 and
// §6: TYPE_IDENTIFIER_INDEX_JOBNAME.{yaml,yml}.
type ParsedName struct {
	JobType    job.Type
	Identifier string
	Index      int
	JobName    string
}

// ParseConfigName parses and validates a config filename, grounded on
// original_source/comfyui_agent/utils/validation.py's parse_config_name.
//
// Unlike the original (which only accepted ".yaml"), both ".yaml" and
// ".yml" are accepted per spec.md §6.
func ParseConfigName(filename string) (ParsedName, error) {
	base := filename
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}

	var stem string
	switch {
	case strings.HasSuffix(base, ".yaml"):
		stem = strings.TrimSuffix(base, ".yaml")
	case strings.HasSuffix(base, ".yml"):
		stem = strings.TrimSuffix(base, ".yml")
	default:
		return ParsedName{}, fmt.Errorf("config file must have .yaml or .yml extension: %s", base)
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 4 {
		return ParsedName{}, fmt.Errorf("invalid config name format: %s", base)
	}

	typeToken, identifier, indexToken := parts[0], parts[1], parts[2]
	jobName := strings.Join(parts[3:], "_")

	jobType, err := job.ParseType(typeToken)
	if err != nil {
		return ParsedName{}, fmt.Errorf("invalid job type: %s", typeToken)
	}

	if !timestampRe.MatchString(identifier) && !identRe.MatchString(identifier) {
		return ParsedName{}, fmt.Errorf("invalid timestamp/identifier: %s", identifier)
	}

	index, err := strconv.Atoi(indexToken)
	if err != nil {
		return ParsedName{}, fmt.Errorf("invalid index: %s", indexToken)
	}

	if !jobnameRe.MatchString(jobName) {
		return ParsedName{}, fmt.Errorf("invalid jobname: %s", jobName)
	}

	return ParsedName{
		JobType:    jobType,
		Identifier: identifier,
		Index:      index,
		JobName:    jobName,
	}, nil
}

// FormatConfigName is the constructive inverse of ParseConfigName, for use
// by producers (spec.md §8).
func FormatConfigName(p ParsedName) string {
	return fmt.Sprintf("%s_%s_%d_%s.yaml", p.JobType.String(), p.Identifier, p.Index, p.JobName)
}
