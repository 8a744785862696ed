package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/dmt/internal/parser"
)

const (
	pgCreateLedgerSQL = `CREATE TABLE IF NOT EXISTS migration (
    id   SERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL,
    time TIMESTAMP NOT NULL
)`
	pgLedgerExistsSQL = `SELECT EXISTS (
    SELECT 1 FROM information_schema.tables
    WHERE table_schema = current_schema() AND table_name = $1
)`
	pgSelectLedgerSQL     = `SELECT id, name, time FROM migration`
	pgInsertLedgerSQL     = `INSERT INTO migration (name, time) VALUES ($1, $2) RETURNING id`
	pgDeleteLedgerNameSQL = `DELETE FROM migration WHERE name = $1`
	pgDeleteLedgerIDSQL   = `DELETE FROM migration WHERE id = $1`
)

// Postgres is the wire-protocol relational backend. It holds a single
// pgx connection; transport security follows the connection string's
// sslmode parameter.
type Postgres struct {
	conn             *pgx.Conn
	lockTimeout      time.Duration
	statementTimeout time.Duration
}

var _ Connection = (*Postgres)(nil)

// PostgresOption configures a Postgres backend.
type PostgresOption func(*Postgres)

// WithLockTimeout sets the per-script lock_timeout.
func WithLockTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) { p.lockTimeout = d }
}

// WithStatementTimeout sets the per-script statement_timeout.
func WithStatementTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) { p.statementTimeout = d }
}

// OpenPostgres parses databaseURL, connects and pings the server.
func OpenPostgres(ctx context.Context, databaseURL string, opts ...PostgresOption) (*Postgres, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx) //nolint:errcheck // already returning the ping failure

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	p := &Postgres{conn: conn}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// CreateMigrationsTable creates the migration ledger if it does not exist.
func (p *Postgres) CreateMigrationsTable(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, pgCreateLedgerSQL); err != nil {
		return fmt.Errorf("%w: creating migration table: %w", ErrQueryFailed, err)
	}

	return nil
}

// MigrationTableExists reports whether the ledger exists in the current schema.
func (p *Postgres) MigrationTableExists(ctx context.Context) (bool, error) {
	var exists bool

	if err := p.conn.QueryRow(ctx, pgLedgerExistsSQL, LedgerTable).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking migration table: %w", ErrQueryFailed, err)
	}

	return exists, nil
}

// GetMigrations returns every ledger row.
func (p *Postgres) GetMigrations(ctx context.Context) ([]Record, error) {
	rows, err := p.conn.Query(ctx, pgSelectLedgerSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: querying migrations: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		if scanErr := row.Scan(&r.ID, &r.Name, &r.AppliedAt); scanErr != nil {
			return Record{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return records, nil
}

// CreateMigration inserts a ledger row and returns its id.
func (p *Postgres) CreateMigration(ctx context.Context, name string, appliedAt time.Time) (int64, error) {
	var id int64

	if err := p.conn.QueryRow(ctx, pgInsertLedgerSQL, name, appliedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: recording migration %s: %w", ErrQueryFailed, name, err)
	}

	return id, nil
}

// ExecuteSQL runs script inside one transaction with the configured
// timeouts. Scripts that would end that transaction early are refused
// before anything is sent. Scripts pg_query cannot parse are left for the
// server to judge.
func (p *Postgres) ExecuteSQL(ctx context.Context, script string) error {
	if desc, err := parser.FindNonTransactional(script); err == nil && desc != "" {
		return fmt.Errorf("%w: %s", ErrNonTransactional, desc)
	}

	return execInTransaction(ctx, p.conn, func(tx pgx.Tx) error {
		if err := setLocalTimeouts(ctx, tx, p.lockTimeout, p.statementTimeout); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, script); err != nil {
			return fmt.Errorf("executing script: %w", err)
		}

		return nil
	})
}

// RemoveMigrationByName deletes the ledger row named name.
func (p *Postgres) RemoveMigrationByName(ctx context.Context, name string) error {
	if _, err := p.conn.Exec(ctx, pgDeleteLedgerNameSQL, name); err != nil {
		return fmt.Errorf("%w: removing migration %s: %w", ErrQueryFailed, name, err)
	}

	return nil
}

// RemoveMigrationByID deletes the ledger row with id.
func (p *Postgres) RemoveMigrationByID(ctx context.Context, id int64) error {
	if _, err := p.conn.Exec(ctx, pgDeleteLedgerIDSQL, id); err != nil {
		return fmt.Errorf("%w: removing migration %d: %w", ErrQueryFailed, id, err)
	}

	return nil
}

// Close terminates the connection.
func (p *Postgres) Close(ctx context.Context) error {
	if p == nil || p.conn == nil {
		return nil
	}

	err := p.conn.Close(ctx)
	p.conn = nil

	if err != nil {
		return fmt.Errorf("closing postgres connection: %w", err)
	}

	return nil
}
