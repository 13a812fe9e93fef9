// Package dbx provides the small database abstractions shared by repositories:
// DBTX, implemented by both *sql.DB and *sql.Tx, plus helpers that run a
// function inside a transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// TxRunner is what services depend on: a plain handle for read-only work and
// a way to run a unit of work atomically.
type TxRunner interface {
	DB() DBTX
	InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// SQLRunner is the TxRunner over a *sql.DB pool.
type SQLRunner struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewSQLRunner wraps db. opts may be nil for driver defaults.
func NewSQLRunner(db *sql.DB, opts *sql.TxOptions) *SQLRunner {
	return &SQLRunner{db: db, opts: opts}
}

func (r *SQLRunner) DB() DBTX { return r.db }

func (r *SQLRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, r.db, r.opts, fn)
}
