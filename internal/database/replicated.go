package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // registers the "libsql" driver
	"github.com/tursodatabase/libsql-client-go/sqliteparserutils"
	_ "modernc.org/sqlite"                               // registers the "sqlite" driver
)

const (
	sqliteDriver = "sqlite"
	libsqlDriver = "libsql"
)

const (
	sqliteCreateLedgerSQL = `CREATE TABLE IF NOT EXISTS migration (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    time TEXT NOT NULL
)`
	sqliteLedgerExistsSQL     = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	sqliteSelectLedgerSQL     = `SELECT id, name, time FROM migration`
	sqliteInsertLedgerSQL     = `INSERT INTO migration (name, time) VALUES (?, ?)`
	sqliteDeleteLedgerNameSQL = `DELETE FROM migration WHERE name = ?`
	sqliteDeleteLedgerIDSQL   = `DELETE FROM migration WHERE id = ?`
)

// Replicated is the local-first backend speaking the SQLite dialect. Remote
// libSQL/Turso databases are reached over HTTP or WebSockets; file: URLs
// and plain paths open a local replica file. The pool is capped at one
// connection so a run sees a single session.
type Replicated struct {
	db     *sqlx.DB
	driver string
}

var _ Connection = (*Replicated)(nil)

type ledgerRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Time string `db:"time"`
}

// OpenReplicated opens rawURL with the driver matching its scheme and
// pings it. authToken is only sent to remote databases.
func OpenReplicated(ctx context.Context, rawURL, authToken string) (*Replicated, error) {
	driver, dsn, err := replicatedDSN(rawURL, authToken)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // already returning the ping failure

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Replicated{db: db, driver: driver}, nil
}

func replicatedDSN(rawURL, authToken string) (string, string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty URL", ErrInvalidDatabaseURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "libsql", "https", "http", "wss", "ws":
		if authToken != "" {
			q := u.Query()
			q.Set("authToken", authToken)
			u.RawQuery = q.Encode()
		}

		return libsqlDriver, u.String(), nil
	case "file", "":
		return sqliteDriver, trimmed, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// CreateMigrationsTable creates the migration ledger if it does not exist.
func (r *Replicated) CreateMigrationsTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteCreateLedgerSQL); err != nil {
		return fmt.Errorf("%w: creating migration table: %w", ErrQueryFailed, err)
	}

	return nil
}

// MigrationTableExists reports whether the ledger exists.
func (r *Replicated) MigrationTableExists(ctx context.Context) (bool, error) {
	var n int

	if err := r.db.GetContext(ctx, &n, sqliteLedgerExistsSQL, LedgerTable); err != nil {
		return false, fmt.Errorf("%w: checking migration table: %w", ErrQueryFailed, err)
	}

	return n > 0, nil
}

// GetMigrations returns every ledger row.
func (r *Replicated) GetMigrations(ctx context.Context) ([]Record, error) {
	var rows []ledgerRow

	if err := r.db.SelectContext(ctx, &rows, sqliteSelectLedgerSQL); err != nil {
		return nil, fmt.Errorf("%w: querying migrations: %w", ErrQueryFailed, err)
	}

	records := make([]Record, 0, len(rows))

	for _, row := range rows {
		appliedAt, err := time.Parse(time.RFC3339Nano, row.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing time of migration %s: %w", ErrQueryFailed, row.Name, err)
		}

		records = append(records, Record{ID: row.ID, Name: row.Name, AppliedAt: appliedAt})
	}

	return records, nil
}

// CreateMigration inserts a ledger row and returns its id. Times are stored
// as RFC 3339 UTC text.
func (r *Replicated) CreateMigration(ctx context.Context, name string, appliedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, sqliteInsertLedgerSQL, name, appliedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("%w: recording migration %s: %w", ErrQueryFailed, name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading id of migration %s: %w", ErrQueryFailed, name, err)
	}

	return id, nil
}

// ExecuteSQL runs script inside one transaction. Scripts holding nothing
// but comments are accepted without a round trip; scripts with their own
// transaction control are refused before anything is sent.
func (r *Replicated) ExecuteSQL(ctx context.Context, script string) error {
	stmts := sqliteStatements(script)
	if len(stmts) == 0 {
		return nil
	}

	if keyword := findSQLiteTransactionControl(stmts); keyword != "" {
		return fmt.Errorf("%w: transaction control (%s)", ErrNonTransactional, keyword)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // rollback after commit returns sql.ErrTxDone

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing script: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// RemoveMigrationByName deletes the ledger row named name.
func (r *Replicated) RemoveMigrationByName(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, sqliteDeleteLedgerNameSQL, name); err != nil {
		return fmt.Errorf("%w: removing migration %s: %w", ErrQueryFailed, name, err)
	}

	return nil
}

// RemoveMigrationByID deletes the ledger row with id.
func (r *Replicated) RemoveMigrationByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, sqliteDeleteLedgerIDSQL, id); err != nil {
		return fmt.Errorf("%w: removing migration %d: %w", ErrQueryFailed, id, err)
	}

	return nil
}

// Close releases the connection.
func (r *Replicated) Close(_ context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}

	err := r.db.Close()
	r.db = nil

	if err != nil {
		return fmt.Errorf("closing %s connection: %w", r.driver, err)
	}

	return nil
}

// sqliteStatements splits script with the libSQL lexer. Comments are
// dropped, so a comment-only script yields no statements.
func sqliteStatements(script string) []string {
	stmts, _ := sqliteparserutils.SplitStatement(script)

	return stmts
}

var sqliteTransactionControl = map[string]bool{
	"BEGIN":     true,
	"COMMIT":    true,
	"END":       true,
	"ROLLBACK":  true,
	"SAVEPOINT": true,
	"RELEASE":   true,
}

// findSQLiteTransactionControl returns the keyword of the first statement
// that would end or nest the transaction wrapping a script, or "".
func findSQLiteTransactionControl(stmts []string) string {
	for _, stmt := range stmts {
		keyword := strings.ToUpper(leadingWord(stmt))
		if sqliteTransactionControl[keyword] {
			return keyword
		}
	}

	return ""
}

func leadingWord(stmt string) string {
	stmt = strings.TrimSpace(stmt)

	end := strings.IndexFunc(stmt, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		return stmt
	}

	return stmt[:end]
}
