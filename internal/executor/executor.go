// Package executor applies outstanding migrations and reverts applied ones
// against a database.Connection, reporting progress per migration.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aqasim81/dmt/internal/database"
	"github.com/aqasim81/dmt/internal/migration"
)

const (
	messageUpToDate        = "database is up to date"
	messageNothingToRevert = "nothing to roll back"
)

// Source supplies migration identifiers and script text. migration.Directory
// satisfies it.
type Source interface {
	Identifiers() ([]string, error)
	ReadFile(identifier, filename string) (string, error)
}

// Executor runs migrations from a Source against one open Connection.
// It never closes the connection.
type Executor struct {
	conn             database.Connection
	source           Source
	reporter         Reporter
	logger           *zap.Logger
	statementTimeout time.Duration
	now              func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithReporter sets the sink receiving progress events.
func WithReporter(r Reporter) Option {
	return func(e *Executor) { e.reporter = r }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithStatementTimeout bounds each script execution. Zero means no limit.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithClock replaces the clock used to stamp ledger records.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor for conn and source.
func New(conn database.Connection, source Source, opts ...Option) *Executor {
	e := &Executor{
		conn:   conn,
		source: source,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.reporter == nil {
		e.reporter = discardReporter{}
	}

	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	if e.now == nil {
		e.now = time.Now
	}

	return e
}

// Apply executes every outstanding migration in ascending identifier
// order, recording each in the ledger once its script succeeds. The first
// failure stops the run; later migrations stay outstanding.
func (e *Executor) Apply(ctx context.Context) error {
	exists, err := e.conn.MigrationTableExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		e.logger.Debug("creating migration ledger", zap.String("table", database.LedgerTable))

		if err := e.conn.CreateMigrationsTable(ctx); err != nil {
			return err
		}
	}

	applied, err := e.appliedNames(ctx)
	if err != nil {
		return err
	}

	onDisk, err := e.source.Identifiers()
	if err != nil {
		return err
	}

	outstanding := Outstanding(onDisk, applied)

	e.logger.Info("computed outstanding migrations",
		zap.Int("on_disk", len(onDisk)),
		zap.Int("applied", len(applied)),
		zap.Int("outstanding", len(outstanding)),
	)

	if len(outstanding) == 0 {
		e.reporter.Report(Event{Direction: DirectionUp, Status: StatusNoop, Message: messageUpToDate})

		return nil
	}

	for _, id := range outstanding {
		if err := e.applyOne(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// Rollback reverts applied migrations that are still on disk. steps <= 0
// reverts all of them in ascending order; steps > 0 reverts the steps most
// recent ones, newest first. A missing ledger is not an error.
func (e *Executor) Rollback(ctx context.Context, steps int) error {
	exists, err := e.conn.MigrationTableExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		e.reporter.Report(Event{Direction: DirectionDown, Status: StatusNoop, Message: messageNothingToRevert})

		return nil
	}

	applied, err := e.appliedNames(ctx)
	if err != nil {
		return err
	}

	onDisk, err := e.source.Identifiers()
	if err != nil {
		return err
	}

	candidates := mostRecent(Candidates(onDisk, applied), steps)

	e.logger.Info("computed rollback candidates",
		zap.Int("applied", len(applied)),
		zap.Int("steps", steps),
		zap.Int("candidates", len(candidates)),
	)

	if len(candidates) == 0 {
		e.reporter.Report(Event{Direction: DirectionDown, Status: StatusNoop, Message: messageNothingToRevert})

		return nil
	}

	for _, id := range candidates {
		if err := e.revertOne(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) appliedNames(ctx context.Context) ([]string, error) {
	records, err := e.conn.GetMigrations(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}

	return names, nil
}

func (e *Executor) applyOne(ctx context.Context, id string) error {
	checksum, duration, err := e.execute(ctx, DirectionUp, id, migration.UpFile)
	if err != nil {
		return err
	}

	e.succeed(DirectionUp, id, checksum, duration)

	if _, err := e.conn.CreateMigration(ctx, id, e.now().UTC()); err != nil {
		e.logger.Debug("recording migration failed", zap.String("migration", id), zap.Error(err))

		return fmt.Errorf("%w: %s: %w", ErrRecordFailed, id, err)
	}

	return nil
}

// revertOne only reports success once the ledger row is gone.
func (e *Executor) revertOne(ctx context.Context, id string) error {
	checksum, duration, err := e.execute(ctx, DirectionDown, id, migration.DownFile)
	if err != nil {
		return err
	}

	if err := e.conn.RemoveMigrationByName(ctx, id); err != nil {
		wrapped := fmt.Errorf("%w: %s: %w", ErrRecordFailed, id, err)
		e.fail(DirectionDown, id, checksum, duration, wrapped)

		return wrapped
	}

	e.succeed(DirectionDown, id, checksum, duration)

	return nil
}

// execute reads filename for id and runs it as one transaction. Failures
// are reported before being returned.
func (e *Executor) execute(ctx context.Context, dir Direction, id, filename string) (string, time.Duration, error) {
	script, err := e.source.ReadFile(id, filename)
	if err != nil {
		e.fail(dir, id, "", 0, err)

		return "", 0, err
	}

	checksum := migration.ComputeChecksum(script)

	e.reporter.Report(Event{Direction: dir, Identifier: id, Status: StatusStarting, Checksum: checksum})
	e.logger.Debug("executing migration",
		zap.String("migration", id),
		zap.String("direction", string(dir)),
		zap.String("checksum", checksum),
	)

	execCtx := ctx

	if e.statementTimeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, e.statementTimeout)
		defer cancel()
	}

	start := time.Now()
	execErr := e.conn.ExecuteSQL(execCtx, script)
	duration := time.Since(start)

	if execErr != nil {
		e.fail(dir, id, checksum, duration, execErr)

		return "", duration, fmt.Errorf("%w: %s: %w", ErrExecutionFailed, id, execErr)
	}

	return checksum, duration, nil
}

func (e *Executor) succeed(dir Direction, id, checksum string, duration time.Duration) {
	e.reporter.Report(Event{
		Direction:  dir,
		Identifier: id,
		Status:     StatusCompleted,
		Duration:   duration,
		Checksum:   checksum,
	})
	e.logger.Info("migration completed",
		zap.String("migration", id),
		zap.String("direction", string(dir)),
		zap.Duration("duration", duration),
	)
}

// fail reports a failed migration. The error is logged at debug level only;
// it is returned to the caller, which prints it.
func (e *Executor) fail(dir Direction, id, checksum string, duration time.Duration, err error) {
	e.reporter.Report(Event{
		Direction:  dir,
		Identifier: id,
		Status:     StatusFailed,
		Duration:   duration,
		Checksum:   checksum,
		Err:        err,
	})
	e.logger.Debug("migration failed",
		zap.String("migration", id),
		zap.String("direction", string(dir)),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
}
