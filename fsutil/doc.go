// Package fsutil provides the filesystem primitives shared by monitor and
// executor: recursive YAML discovery, directory creation, atomic file
// moves, and locating a config_name under the processing or finished
// trees.
//
// Grounded on original_source/comfyui_agent/utils/file_utils.py.
package fsutil
