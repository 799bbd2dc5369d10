// Package testgen provides utilities for generating test archives with
// configurable page layouts for testing the scan worker and page cache.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// CBZOptions configures the generated CBZ file.
type CBZOptions struct {
	Pages       []string          // entry names in archive order; defaults to 000.png, 001.png, 002.png
	ImageFormat string            // "png" or "jpeg", defaults to "png"
	ImageWidth  int               // defaults to 100
	ImageHeight int               // defaults to 100
	ExtraFiles  map[string][]byte // raw non-image entries, e.g. "info.txt"
}

// TempLibraryDir creates a temporary library directory structure for testing.
// Returns the library path that should be used when creating a library.
func TempLibraryDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// CreateSubDir creates a subdirectory within the given parent directory.
// Returns the full path to the created subdirectory.
func CreateSubDir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create subdirectory %s: %v", dir, err)
	}
	return dir
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
