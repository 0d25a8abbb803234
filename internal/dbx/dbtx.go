// Package dbx decouples repositories from the transaction boundary. Every
// repository is written against the narrow DBTX interface, so the same code
// serves plain connection access and transactional access; WithTx is the one
// place that opens, commits and rolls back transactions.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. A repository
// constructed over a *sql.Tx takes part in that transaction without knowing
// it; the classification applier and the bulk pull rely on this to compose
// several repositories into one atomic step.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction started on db. The transaction commits
// when fn returns nil and rolls back when it returns an error or panics; a
// panic is re-raised after the rollback so it still reaches the caller. The
// DBTX handed to fn is only valid for the duration of the call.
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

	err = fn(ctx, tx)
	return err
}
