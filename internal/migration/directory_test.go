package migration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/dmt/internal/migration"
)

func TestDirectory_Identifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr error
		want    []string
	}{
		{
			name: "lists subdirectories only",
			setup: func(t *testing.T) string {
				t.Helper()
				root := t.TempDir()
				writeScript(t, root, "20240102120000_posts", migration.UpFile, "SELECT 1;")
				writeScript(t, root, "20240101120000_users", migration.UpFile, "SELECT 1;")
				require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# readme"), 0o644))

				return root
			},
			want: []string{"20240101120000_users", "20240102120000_posts"},
		},
		{
			name: "empty directory returns empty slice",
			setup: func(t *testing.T) string {
				t.Helper()

				return t.TempDir()
			},
			want: []string{},
		},
		{
			name: "missing directory returns error",
			setup: func(t *testing.T) string {
				t.Helper()

				return filepath.Join(t.TempDir(), "nonexistent")
			},
			wantErr: migration.ErrDirectoryUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := migration.NewDirectory(tt.setup(t))
			ids, err := dir.Identifiers()

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestDirectory_Identifiers_rescansOnEveryCall(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := migration.NewDirectory(root)

	ids, err := dir.Identifiers()
	require.NoError(t, err)
	assert.Empty(t, ids)

	writeScript(t, root, "20240101120000_init", migration.UpFile, "SELECT 1;")

	ids, err = dir.Identifiers()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101120000_init"}, ids)
}

func TestDirectory_ReadFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeScript(t, root, "20240101120000_init", migration.UpFile, "CREATE TABLE t (id INT);\n")

	dir := migration.NewDirectory(root)

	got, err := dir.ReadFile("20240101120000_init", migration.UpFile)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (id INT);\n", got, "content is returned verbatim")

	_, err = dir.ReadFile("20240101120000_init", migration.DownFile)
	require.ErrorIs(t, err, migration.ErrScriptNotFound)

	_, err = dir.ReadFile("20990101000000_missing", migration.UpFile)
	require.ErrorIs(t, err, migration.ErrScriptNotFound)
}

func writeScript(t *testing.T, root, id, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, id), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, id, name), []byte(content), 0o644))
}
