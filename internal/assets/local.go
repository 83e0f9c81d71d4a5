package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSource resolves assets by scanning directories on the local
// filesystem. It never allocates temp directories; the returned tempDir is
// always empty.
type LocalSource struct{}

// NewLocalSource creates a local filesystem source
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

// ListFiles returns all regular files in the directory matching the
// extension allow-list. Extensions are matched case-insensitively.
func (s *LocalSource) ListFiles(ctx context.Context, location string, extensions []string) ([]string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan %s: %w", location, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(location, entry.Name())
		if hasExtension(path, extensions) {
			paths = append(paths, path)
		}
	}

	return paths, "", nil
}

// FetchFile verifies the file exists and returns its path unchanged.
func (s *LocalSource) FetchFile(ctx context.Context, location string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	info, err := os.Stat(location)
	if err != nil {
		return "", "", fmt.Errorf("failed to access %s: %w", location, err)
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("%s is a directory, expected a file", location)
	}

	return location, "", nil
}
