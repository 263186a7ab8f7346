// Package project locates files relative to the working directory.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no directory up to the root holds the file.
var ErrNotFound = errors.New("not found in any parent directory")

// FindUp walks from start toward the filesystem root and returns the path
// of the first regular file named rel.
func FindUp(start, rel string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s: %w", rel, ErrNotFound)
}

// ResolveFile returns path unchanged when it is absolute or exists under
// base. Otherwise it searches the parents of base, and falls back to
// base/path so callers can report a useful missing-file error.
func ResolveFile(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	direct := filepath.Join(base, path)
	if _, err := os.Stat(direct); err == nil {
		return direct
	}
	if found, err := FindUp(base, path); err == nil {
		return found
	}
	return direct
}
