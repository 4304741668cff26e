package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of driver operations the SQL handlers need. It is
// satisfied by pooled connections, standalone connections and transactions,
// and by test fakes.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a scoped connection. Release must be called exactly once on every
// exit path; for pooled connections it returns the connection to the pool,
// for standalone connections it closes them.
type Conn interface {
	DBTX
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Release(ctx context.Context) error
}

// Database hands out connections to handlers: pooled for the default
// database, standalone for cross-database targeting.
type Database interface {
	Acquire(ctx context.Context) (Conn, error)
	ConnectTo(ctx context.Context, database string) (Conn, error)
	DefaultDatabase() string
	ServerVersion(ctx context.Context) (string, error)
}
