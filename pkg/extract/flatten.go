package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// flatten moves every file nested under subdirectories of root directly into
// root and removes the emptied subdirectories. File names are preserved;
// collisions get a numeric suffix instead of silently overwriting.
func flatten(root string) error {
	subdirs := []string{}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			subdirs = append(subdirs, path)
			return nil
		}
		if filepath.Dir(path) == root {
			// Already at the root.
			return nil
		}

		target := filepath.Join(root, d.Name())
		if _, err := os.Stat(target); err == nil {
			target = uniqueFilepath(target)
		}
		if err := os.Rename(path, target); err != nil {
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Remove deepest directories first.
	for i := len(subdirs) - 1; i >= 0; i-- {
		if err := os.Remove(subdirs[i]); err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

// uniqueFilepath returns a path that doesn't exist yet by appending _1, _2,
// ... before the extension.
func uniqueFilepath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
