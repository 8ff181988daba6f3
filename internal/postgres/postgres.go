// Package postgres implements the store ports against PostgreSQL. The schema
// these stores expect is in schema.sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps the connection pool and carries transactions through contexts so
// multiple stores can join one transaction.
type DB struct {
	pool *sqlx.DB
}

// Open connects to the database at dsn and verifies the connection.
func Open(dsn string) (*DB, error) {
	pool, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() error { return d.pool.Close() }

type txKey struct{}

// WithinTx runs fn inside a transaction. Store calls made with the context fn
// receives join that transaction; they commit together or roll back together.
func (d *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	tx, err := d.pool.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ext returns the transaction bound to ctx, or the pool when there is none.
func (d *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return d.pool
}

// noRows reports whether err is the empty-result sentinel.
func noRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
