package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is the subset of pgx operations shared by pools, connections and
// transactions. Repositories accept whichever is bound to the context.
type Conn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type ctxKey int

const connKey ctxKey = iota

// WithTx runs fn inside a transaction. The transaction is bound to the
// context passed to fn, so repository calls made through ConnFromContext
// share it. The transaction is committed when fn returns nil and rolled
// back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, connKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ConnFromContext returns the transaction bound to ctx by WithTx, or nil
// when the caller is not inside a transaction.
func ConnFromContext(ctx context.Context) Conn {
	if c, ok := ctx.Value(connKey).(Conn); ok {
		return c
	}
	return nil
}
