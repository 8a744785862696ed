package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type pgxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// execInTransaction runs fn inside a database transaction.
// On success the transaction is committed; on error it is rolled back.
func execInTransaction(ctx context.Context, db pgxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// setLocalTimeouts bounds lock waits and statement runtime for the rest of
// tx. SET LOCAL reverts on commit or rollback. Zero durations are skipped.
func setLocalTimeouts(ctx context.Context, tx pgx.Tx, lockTimeout, statementTimeout time.Duration) error {
	if lockTimeout > 0 {
		sql := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMillis(lockTimeout))
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setting lock_timeout: %w", err)
		}
	}

	if statementTimeout > 0 {
		sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeoutMillis(statementTimeout))
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setting statement_timeout: %w", err)
		}
	}

	return nil
}

// timeoutMillis rounds d up to whole milliseconds. PostgreSQL reads '0ms'
// as "no limit", so a positive sub-millisecond timeout must not truncate.
func timeoutMillis(d time.Duration) int64 {
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}
