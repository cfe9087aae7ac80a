package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const (
	mysqlDuplicateEntry = 1062
	mysqlDeadlock       = 1213

	deadlockAttempts = 3
)

// WithTx runs fn inside a transaction, committing on nil and rolling back
// otherwise. A deadlock victim is retried with a fresh transaction, so fn
// must not keep state across attempts.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	var err error
	for attempt := 0; attempt < deadlockAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if !IsDeadlock(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsDuplicateKey reports a unique-key violation.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// IsDeadlock reports InnoDB deadlock victims; the transaction can be retried.
func IsDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDeadlock
}

// IsNoRows hides the sql.ErrNoRows comparison from callers.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
