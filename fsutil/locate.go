package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/comfyqueue/scheduler/job"
)

// LocateConfig finds the on-disk YAML file for configName, searching in
// the order the original executor did: the processing root, the type's
// lowercase subdirectory, its uppercase subdirectory, and finally the
// finished tree (for a retry of an already-completed job), grounded on
// original_source/comfyui_agent/executor.py's execute_job search
// fallback chain.
func LocateConfig(processingRoot, finishedRoot, configName string, jobType job.Type) (string, error) {
	candidates := []string{
		filepath.Join(processingRoot, configName),
		filepath.Join(processingRoot, jobType.LowerSubdir(), configName),
		filepath.Join(processingRoot, jobType.UpperSubdir(), configName),
		filepath.Join(finishedRoot, jobType.LowerSubdir(), configName),
		filepath.Join(finishedRoot, configName),
		filepath.Join(finishedRoot, jobType.UpperSubdir(), configName),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("fsutil: config not found in any expected location: %s", configName)
}

// RelativeFinishedPath computes the destination path for moving a
// completed job's YAML out of processingRoot into finishedRoot,
// preserving whatever subdirectory structure the file was found under.
func RelativeFinishedPath(processingRoot, finishedRoot, yamlPath string) (string, error) {
	rel, err := filepath.Rel(processingRoot, yamlPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join(finishedRoot, filepath.Base(yamlPath)), nil
	}
	return filepath.Join(finishedRoot, rel), nil
}
