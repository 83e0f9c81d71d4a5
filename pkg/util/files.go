package util

import (
	"os"
	"path/filepath"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CleanupDirs removes multiple directories recursively, ignoring errors.
// Used to reclaim per-run temp directories on every exit path.
func CleanupDirs(dirs ...string) {
	for _, dir := range dirs {
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
	}
}

// BaseNoExt returns the basename of a path without its extension
func BaseNoExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
