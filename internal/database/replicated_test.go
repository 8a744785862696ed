package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/dmt/internal/database"
)

func openReplica(t *testing.T) *database.Replicated {
	t.Helper()

	ctx := context.Background()

	conn, err := database.OpenReplicated(ctx, filepath.Join(t.TempDir(), "replica.db"), "")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, conn.Close(ctx))
	})

	return conn
}

func TestReplicated_ledgerLifecycle(t *testing.T) {
	t.Parallel()

	conn := openReplica(t)
	ctx := context.Background()

	exists, err := conn.MigrationTableExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, conn.CreateMigrationsTable(ctx))
	require.NoError(t, conn.CreateMigrationsTable(ctx), "creating the ledger is idempotent")

	exists, err = conn.MigrationTableExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	records, err := conn.GetMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	appliedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	firstID, err := conn.CreateMigration(ctx, "20240101120000_init", appliedAt)
	require.NoError(t, err)

	secondID, err := conn.CreateMigration(ctx, "20240102120000_users", appliedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	_, err = conn.CreateMigration(ctx, "20240101120000_init", appliedAt)
	require.ErrorIs(t, err, database.ErrQueryFailed, "ledger names are unique")

	records, err = conn.GetMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := map[string]database.Record{}
	for _, r := range records {
		byName[r.Name] = r
	}

	assert.Equal(t, firstID, byName["20240101120000_init"].ID)
	assert.True(t, appliedAt.Equal(byName["20240101120000_init"].AppliedAt))

	require.NoError(t, conn.RemoveMigrationByName(ctx, "20240101120000_init"))
	require.NoError(t, conn.RemoveMigrationByID(ctx, secondID))

	records, err = conn.GetMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReplicated_ExecuteSQL_commitsWholeScript(t *testing.T) {
	t.Parallel()

	conn := openReplica(t)
	ctx := context.Background()

	err := conn.ExecuteSQL(ctx, `
CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
INSERT INTO widgets (name) VALUES ('sprocket');
`)
	require.NoError(t, err)

	require.NoError(t, conn.ExecuteSQL(ctx, "SELECT name FROM widgets;"))
}

func TestReplicated_ExecuteSQL_failureAppliesNothing(t *testing.T) {
	t.Parallel()

	conn := openReplica(t)
	ctx := context.Background()

	err := conn.ExecuteSQL(ctx, `
CREATE TABLE gadgets (id INTEGER PRIMARY KEY);
INSERT INTO no_such_table VALUES (1);
`)
	require.Error(t, err)

	err = conn.ExecuteSQL(ctx, "SELECT id FROM gadgets;")
	require.Error(t, err, "the first statement must have been rolled back")
}

func TestReplicated_ExecuteSQL_rejectsTransactionControl(t *testing.T) {
	t.Parallel()

	conn := openReplica(t)
	ctx := context.Background()

	scripts := []string{
		"CREATE TABLE a (id INTEGER); COMMIT; INSERT INTO no_such_table VALUES (1);",
		"CREATE TABLE a (id INTEGER); END; INSERT INTO no_such_table VALUES (1);",
		"BEGIN; CREATE TABLE a (id INTEGER);",
		"SAVEPOINT sp; CREATE TABLE a (id INTEGER); RELEASE sp;",
	}

	for _, script := range scripts {
		err := conn.ExecuteSQL(ctx, script)
		require.ErrorIs(t, err, database.ErrNonTransactional, script)
	}

	err := conn.ExecuteSQL(ctx, "SELECT id FROM a;")
	require.Error(t, err, "nothing was sent to the database")
}

func TestReplicated_ExecuteSQL_triggerBodyIsNotTransactionControl(t *testing.T) {
	t.Parallel()

	conn := openReplica(t)

	err := conn.ExecuteSQL(context.Background(), `
CREATE TABLE audited (id INTEGER PRIMARY KEY, touched INTEGER NOT NULL DEFAULT 0);
CREATE TRIGGER audited_touch AFTER INSERT ON audited BEGIN
    UPDATE audited SET touched = 1 WHERE id = NEW.id;
END;
`)
	require.NoError(t, err)
}

func TestReplicated_ExecuteSQL_commentOnlyScript_succeeds(t *testing.T) {
	t.Parallel()

	conn := openReplica(t)

	err := conn.ExecuteSQL(context.Background(), "-- 20240101120000_widgets - up.sql\n\n    -- Write your SQL code here\n")
	require.NoError(t, err)
}

func TestOpenReplicated_rejectsBadURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "empty", url: "  ", wantErr: database.ErrInvalidDatabaseURL},
		{name: "postgres scheme", url: "postgres://localhost/db", wantErr: database.ErrUnsupportedScheme},
		{name: "ftp scheme", url: "ftp://example.com/db", wantErr: database.ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conn, err := database.OpenReplicated(context.Background(), tt.url, "token")

			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, conn)
		})
	}
}
