package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Directory reads migrations from a root directory containing one
// subdirectory per migration. Nothing is cached: every call hits the
// filesystem again.
type Directory struct {
	root string
}

// NewDirectory returns a Directory rooted at root.
func NewDirectory(root string) *Directory {
	return &Directory{root: root}
}

// Root returns the migrations root path.
func (d *Directory) Root() string {
	return d.root
}

// Identifiers lists the names of the immediate subdirectories of the root.
// Regular files are ignored. The order is whatever the platform returns;
// callers must Sort before using it as application order.
func (d *Directory) Identifiers() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryUnreadable, d.root, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		ids = append(ids, entry.Name())
	}

	return ids, nil
}

// ReadFile returns the text of <root>/<identifier>/<filename>.
func (d *Directory) ReadFile(identifier, filename string) (string, error) {
	path := filepath.Join(d.root, identifier, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrScriptNotFound, path)
		}

		return "", fmt.Errorf("%w: %s: %w", ErrScriptUnreadable, path, err)
	}

	return string(data), nil
}
