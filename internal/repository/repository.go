package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

// DBTX is the query surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connector hands out the datastore handle for the duration of fn.
// guardian.Guardian is the production implementation; it serializes callers
// and reconnects before running fn when the handle has gone away.
type Connector interface {
	WithConnection(ctx context.Context, fn func(DBTX) error) error
}

type directConnector struct {
	db DBTX
}

// Direct wraps a handle that needs no supervision (tests, one-off tools).
func Direct(db DBTX) Connector {
	return directConnector{db: db}
}

func (c directConnector) WithConnection(_ context.Context, fn func(DBTX) error) error {
	return fn(c.db)
}
