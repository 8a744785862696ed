//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aqasim81/dmt/internal/database"
	"github.com/aqasim81/dmt/internal/migration"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "dmt_test"
	testUser      = "dmt"
	testPassword  = "dmt"
)

// SetupPostgresDSN starts a PostgreSQL 16 container and returns its
// connection string. The container is terminated when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + testUser + ":" + testPassword + "@" + host + ":" + port.Port() + "/" + testDB + "?sslmode=disable"
}

// SetupPostgres returns an open relational backend on a fresh container.
func SetupPostgres(t *testing.T, opts ...database.PostgresOption) *database.Postgres {
	t.Helper()

	ctx := context.Background()

	conn, err := database.OpenPostgres(ctx, SetupPostgresDSN(t), opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, conn.Close(context.Background()))
	})

	return conn
}

// WriteMigration creates <root>/<id>/up.sql and down.sql.
func WriteMigration(t *testing.T, root, id, up, down string) {
	t.Helper()

	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, migration.UpFile), []byte(up), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, migration.DownFile), []byte(down), 0o644))
}
