package pg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRows is a scripted pgx.Rows backed by in-memory column names and row
// values.
type fakeRows struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
	err     error
}

func newFakeRows(columns []string, rows [][]any) *fakeRows {
	return &fakeRows{columns: columns, rows: rows}
}

func (r *fakeRows) Close()                       { r.closed = true }
func (r *fakeRows) Err() error                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.rows)))
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: name}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.rows) {
		return errors.New("Scan called without Next")
	}
	return assignValues(r.rows[r.pos-1], dest)
}

func (r *fakeRows) Values() ([]any, error) {
	if r.pos == 0 || r.pos > len(r.rows) {
		return nil, errors.New("Values called without Next")
	}
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn    { return nil }

// fakeRow is a scripted pgx.Row.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignValues(r.values, dest)
}

// assignValues copies scripted values into Scan destinations, mirroring the
// loose typing the driver offers.
func assignValues(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan destination count %d does not match value count %d", len(dest), len(values))
	}
	for i, v := range values {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("destination %d is not a pointer", i)
		}
		elem := dv.Elem()
		if v == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		sv := reflect.ValueOf(v)
		switch {
		case sv.Type().AssignableTo(elem.Type()):
			elem.Set(sv)
		case sv.Type().ConvertibleTo(elem.Type()):
			elem.Set(sv.Convert(elem.Type()))
		case elem.Kind() == reflect.Pointer && sv.Type().AssignableTo(elem.Type().Elem()):
			p := reflect.New(elem.Type().Elem())
			p.Elem().Set(sv)
			elem.Set(p)
		default:
			return fmt.Errorf("cannot assign %T to destination %d (%s)", v, i, elem.Type())
		}
	}
	return nil
}

// fakeConn is a scripted Conn. The onQuery/onExec/onQueryRow hooks receive
// the SQL text and arguments; unset hooks return empty results.
type fakeConn struct {
	onQuery    func(sql string, args []any) (pgx.Rows, error)
	onExec     func(sql string, args []any) (pgconn.CommandTag, error)
	onQueryRow func(sql string, args []any) pgx.Row
	tx         pgx.Tx
	beginErr   error

	execs    []string
	queries  []string
	released int
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execs = append(c.execs, sql)
	if c.onExec != nil {
		return c.onExec(sql, args)
	}
	return pgconn.NewCommandTag(""), nil
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.queries = append(c.queries, sql)
	if c.onQuery != nil {
		return c.onQuery(sql, args)
	}
	return newFakeRows(nil, nil), nil
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.queries = append(c.queries, sql)
	if c.onQueryRow != nil {
		return c.onQueryRow(sql, args)
	}
	return fakeRow{}
}

func (c *fakeConn) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return c.tx, nil
}

func (c *fakeConn) Release(context.Context) error {
	c.released++
	return nil
}

// fakeDatabase hands out scripted connections.
type fakeDatabase struct {
	conn          *fakeConn
	standalone    map[string]*fakeConn
	defaultDB     string
	serverVersion string
	acquireErr    error
	connectErr    error

	connectedTo []string
}

func (d *fakeDatabase) Acquire(context.Context) (Conn, error) {
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	return d.conn, nil
}

func (d *fakeDatabase) ConnectTo(_ context.Context, database string) (Conn, error) {
	d.connectedTo = append(d.connectedTo, database)
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	if c, ok := d.standalone[database]; ok {
		return c, nil
	}
	return &fakeConn{}, nil
}

func (d *fakeDatabase) DefaultDatabase() string { return d.defaultDB }

func (d *fakeDatabase) ServerVersion(context.Context) (string, error) {
	return d.serverVersion, nil
}

// fakeTx is a scripted pgx.Tx that delegates statements to hooks and tracks
// commit/rollback calls.
type fakeTx struct {
	onQuery func(sql string, args []any) (pgx.Rows, error)
	onExec  func(sql string, args []any) (pgconn.CommandTag, error)

	statements []string
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.statements = append(t.statements, sql)
	if t.onExec != nil {
		return t.onExec(sql, args)
	}
	return pgconn.NewCommandTag(""), nil
}

func (t *fakeTx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	t.statements = append(t.statements, sql)
	if t.onQuery != nil {
		return t.onQuery(sql, args)
	}
	return newFakeRows(nil, nil), nil
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	t.statements = append(t.statements, sql)
	return fakeRow{}
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

// fakeRunner is a scripted CommandRunner.
type fakeRunner struct {
	paths map[string]string
	onRun func(argv, env []string) (string, string, error)

	runs [][]string
	envs [][]string
}

func (r *fakeRunner) LookPath(binary string) (string, error) {
	if path, ok := r.paths[binary]; ok {
		return path, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", binary)
}

func (r *fakeRunner) Run(_ context.Context, argv []string, env []string) (string, string, error) {
	r.runs = append(r.runs, argv)
	r.envs = append(r.envs, env)
	if r.onRun != nil {
		return r.onRun(argv, env)
	}
	return "", "", nil
}

// newTestClient wires a client to fakes with a fixed clock.
func newTestClient(db *fakeDatabase, runner *fakeRunner) *Client {
	c := NewClient(db, &ConnectionDescriptor{
		Scheme:   "postgresql",
		Host:     "db.example.com",
		Port:     5432,
		Username: "admin",
		Password: "secret",
		Database: "app",
		SSLMode:  "prefer",
	}, &Config{BackupDir: "/tmp/backups"}, discardLogger())
	if runner != nil {
		c.runner = runner
	}
	return c
}
