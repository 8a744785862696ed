// Package database defines the capability set every migration backend
// implements and the two backends shipped with dmt.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LedgerTable is the name of the relation recording applied migrations.
const LedgerTable = "migration"

// Record is one row of the migration ledger.
type Record struct {
	ID        int64
	Name      string
	AppliedAt time.Time
}

// Connection is the capability set shared by every backend. A value holds
// exactly one underlying connection for the duration of a run.
type Connection interface {
	// CreateMigrationsTable creates the ledger; a no-op if it exists.
	CreateMigrationsTable(ctx context.Context) error
	// MigrationTableExists reports whether the ledger relation exists.
	MigrationTableExists(ctx context.Context) (bool, error)
	// GetMigrations returns all ledger rows in no particular order.
	GetMigrations(ctx context.Context) ([]Record, error)
	// CreateMigration inserts a ledger row and returns its surrogate id.
	CreateMigration(ctx context.Context, name string, appliedAt time.Time) (int64, error)
	// ExecuteSQL runs script as one transaction: all statements or none.
	ExecuteSQL(ctx context.Context, script string) error
	// RemoveMigrationByName deletes the ledger row with the given name.
	RemoveMigrationByName(ctx context.Context, name string) error
	// RemoveMigrationByID deletes the ledger row with the given id.
	RemoveMigrationByID(ctx context.Context, id int64) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Kind selects a backend implementation.
type Kind string

// Supported backend kinds.
const (
	KindPostgres Kind = "postgres"
	KindTurso    Kind = "turso"
)

// ParseKind maps a configured database name, including the generic
// aliases "relational", "replicated" and "libsql", to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "relational":
		return KindPostgres, nil
	case "turso", "libsql", "replicated":
		return KindTurso, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

// Params carries the per-kind connection settings.
type Params struct {
	Kind Kind

	// ConnectionString is used by KindPostgres.
	ConnectionString string
	// LockTimeout and StatementTimeout are applied per script by KindPostgres.
	LockTimeout      time.Duration
	StatementTimeout time.Duration

	// URL and AuthToken are used by KindTurso.
	URL       string
	AuthToken string
}

// Open connects to the backend selected by p.Kind.
func Open(ctx context.Context, p Params) (Connection, error) {
	switch p.Kind {
	case KindPostgres:
		conn, err := OpenPostgres(ctx, p.ConnectionString,
			WithLockTimeout(p.LockTimeout),
			WithStatementTimeout(p.StatementTimeout),
		)
		if err != nil {
			return nil, err
		}

		return conn, nil
	case KindTurso:
		conn, err := OpenReplicated(ctx, p.URL, p.AuthToken)
		if err != nil {
			return nil, err
		}

		return conn, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, p.Kind)
	}
}
