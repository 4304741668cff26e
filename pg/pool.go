package pg

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgtoolbox/postgres-mcp-server/metrics"
)

// Pool owns the process-wide set of live connections to the default
// database. It is created once at startup and torn down at shutdown; all
// default-database handlers share it. Cross-database operations get
// standalone connections via ConnectTo and never contend with the pool.
type Pool struct {
	desc           *ConnectionDescriptor
	tokens         TokenSource
	minConns       int
	maxConns       int
	acquireTimeout time.Duration
	logger         *slog.Logger

	mu     sync.Mutex
	pool   *pgxpool.Pool
	closed bool
}

// NewPool creates an uninitialized pool manager. Call Initialize before use.
func NewPool(desc *ConnectionDescriptor, cfg *Config, tokens TokenSource, logger *slog.Logger) *Pool {
	return &Pool{
		desc:           desc,
		tokens:         tokens,
		minConns:       cfg.PoolMinConns,
		maxConns:       cfg.PoolMaxConns,
		acquireTimeout: cfg.AcquireTimeout,
		logger:         logger,
	}
}

// Initialize establishes the pool. It is idempotent: a second call returns
// without reconnecting.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &PoolClosedError{}
	}
	if p.pool != nil {
		return nil
	}

	poolCfg, err := p.poolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return &ConnectFailedError{Host: p.desc.Host, Database: p.desc.Database, Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return &ConnectFailedError{Host: p.desc.Host, Database: p.desc.Database, Err: err}
	}

	p.pool = pool
	p.logger.Info("Database pool initialized",
		"descriptor", p.desc.Redacted(),
		"min_conns", p.minConns,
		"max_conns", p.maxConns,
	)
	return nil
}

// poolConfig builds the pgxpool configuration. MaxConns is the hard ceiling
// on outstanding connections; pgxpool enforces it, callers past the limit
// block in Acquire.
func (p *Pool) poolConfig() (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(p.desc.DSN())
	if err != nil {
		return nil, &InvalidDescriptorError{Reason: err.Error()}
	}
	poolCfg.MinConns = int32(p.minConns)
	poolCfg.MaxConns = int32(p.maxConns)
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "postgres-mcp-server"

	if p.tokens != nil {
		// Token-based auth: inject a fresh access token as the password
		// before every physical connect.
		poolCfg.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := p.tokens.Token(ctx)
			if err != nil {
				return err
			}
			cc.Password = token
			return nil
		}
	}
	return poolCfg, nil
}

// Acquire blocks until a pooled connection is available or the acquire
// timeout elapses.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	pool, closed := p.pool, p.closed
	p.mu.Unlock()

	if closed {
		metrics.PoolAcquires.WithLabelValues("closed").Inc()
		return nil, &PoolClosedError{}
	}
	if pool == nil {
		return nil, errors.New("database pool not initialized")
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && acquireCtx.Err() != nil && ctx.Err() == nil {
			metrics.PoolAcquires.WithLabelValues("timeout").Inc()
			return nil, &PoolTimeoutError{Timeout: p.acquireTimeout}
		}
		metrics.PoolAcquires.WithLabelValues("error").Inc()
		return nil, &ConnectFailedError{Host: p.desc.Host, Database: p.desc.Database, Err: err}
	}

	metrics.PoolAcquires.WithLabelValues("ok").Inc()
	return &pooledConn{conn: conn}, nil
}

// ConnectTo opens a standalone connection to the named database, bypassing
// the pool. The caller releases it at scope exit.
func (p *Pool) ConnectTo(ctx context.Context, database string) (Conn, error) {
	desc := p.desc.WithDatabase(database)

	connCfg, err := pgx.ParseConfig(desc.DSN())
	if err != nil {
		return nil, &InvalidDescriptorError{Reason: err.Error()}
	}
	if p.tokens != nil {
		token, err := p.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		connCfg.Password = token
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, &ConnectFailedError{Host: desc.Host, Database: database, Err: err}
	}

	metrics.StandaloneConnections.Inc()
	return &standaloneConn{conn: conn}, nil
}

// DefaultDatabase returns the database the pool is bound to.
func (p *Pool) DefaultDatabase() string {
	return p.desc.Database
}

// ServerVersion reports the PostgreSQL server version, e.g. "16.2".
func (p *Pool) ServerVersion(ctx context.Context) (string, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release(ctx)

	var version string
	if err := conn.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// Close tears down all pooled connections. Subsequent acquires fail with
// PoolClosedError.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
		p.logger.Info("Database pool closed")
	}
}

type pooledConn struct {
	conn *pgxpool.Conn
}

func (c *pooledConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.conn.Exec(ctx, sql, args...)
}

func (c *pooledConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.conn.Query(ctx, sql, args...)
}

func (c *pooledConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *pooledConn) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return c.conn.BeginTx(ctx, opts)
}

func (c *pooledConn) Release(context.Context) error {
	c.conn.Release()
	return nil
}

type standaloneConn struct {
	conn *pgx.Conn
}

func (c *standaloneConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.conn.Exec(ctx, sql, args...)
}

func (c *standaloneConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.conn.Query(ctx, sql, args...)
}

func (c *standaloneConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *standaloneConn) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return c.conn.BeginTx(ctx, opts)
}

func (c *standaloneConn) Release(ctx context.Context) error {
	return c.conn.Close(ctx)
}
