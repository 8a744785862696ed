package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const placeholderSQL = `

    -- Write your SQL code here
`

// Scaffold creates <root>/<timestamp>_<name>/ with placeholder up.sql and
// down.sql files and returns the new identifier. Two scaffolds with the
// same name in the same second share an identifier, and the later call
// overwrites the earlier placeholders.
func Scaffold(root, name string, now time.Time) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	id := NewIdentifier(now, name)
	dir := filepath.Join(root, id)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating directory %s: %w", ErrScaffold, dir, err)
	}

	for _, file := range []string{UpFile, DownFile} {
		path := filepath.Join(dir, file)
		body := fmt.Sprintf("-- %s - %s\n%s", id, file, placeholderSQL)

		if err := os.WriteFile(path, []byte(body), 0o644); err != nil { //nolint:gosec // scripts are meant to be shared
			return "", fmt.Errorf("%w: writing %s: %w", ErrScaffold, path, err)
		}
	}

	return id, nil
}
