package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDirs creates every directory in paths, idempotently.
func EnsureDirs(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("fsutil: create %s: %w", p, err)
		}
	}
	return nil
}

// ListYAMLUnder recursively finds every .yaml/.yml file under root,
// returning absolute paths. A missing root is not an error: it returns an
// empty slice, matching list_yaml_under's behavior of tolerating a
// not-yet-created processing tree.
func ListYAMLUnder(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			out = append(out, abs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsutil: walk %s: %w", root, err)
	}
	return out, nil
}

// SafeMove moves src to dst, creating dst's parent directory as needed.
// It tries a plain rename first and falls back to copy+remove when src
// and dst live on different filesystems, grounded on file_utils.py's
// safe_move.
func SafeMove(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("fsutil: source not found: %s", src)
	}

	dstDir := filepath.Dir(dst)
	if dstDir != "" {
		if err := os.MkdirAll(dstDir, 0o755); err != nil {
			return fmt.Errorf("fsutil: create %s: %w", dstDir, err)
		}
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fsutil-move-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, info.Mode()); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
