package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// fakeDriver hands out a prepared connection.
type fakeDriver struct {
	conn Conn
	err  error
	urls []string
}

func (d *fakeDriver) Establish(_ context.Context, url string) (Conn, error) {
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

// fakeConn records calls and answers the probe with info.
type fakeConn struct {
	info     ConnectionInfo
	probeErr error

	loadFn  func(ctx context.Context, q Query) (Rows, error)
	countFn func(ctx context.Context, q Query) (int64, error)
	batchFn func(ctx context.Context, sql string) error

	pingErr error
	tm      *fakeTM
	closed  int
}

func newFakeConn(info ConnectionInfo) *fakeConn {
	return &fakeConn{info: info, tm: &fakeTM{}}
}

func (c *fakeConn) BatchExecute(ctx context.Context, sql string) error {
	if c.batchFn != nil {
		return c.batchFn(ctx, sql)
	}
	return nil
}

func (c *fakeConn) Load(ctx context.Context, q Query) (Rows, error) {
	text, _ := q.SQL()
	if text == MySQL.ProbeQuery {
		if c.probeErr != nil {
			return nil, c.probeErr
		}
		return newFakeRows([]string{"DATABASE()", "VERSION()"},
			[]any{c.info.CurrentDatabase, c.info.Version}), nil
	}
	if c.loadFn != nil {
		return c.loadFn(ctx, q)
	}
	return newFakeRows([]string{"id"}), nil
}

func (c *fakeConn) ExecuteReturningCount(ctx context.Context, q Query) (int64, error) {
	if c.countFn != nil {
		return c.countFn(ctx, q)
	}
	return 0, nil
}

func (c *fakeConn) Transaction(ctx context.Context, body TxFunc) error {
	return RunTransaction(ctx, c.tm, c, body)
}

func (c *fakeConn) TransactionManager() TransactionManager {
	return c.tm
}

func (c *fakeConn) Ping(context.Context) error {
	return c.pingErr
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

// fakeTM counts transaction calls.
type fakeTM struct {
	depth       int
	calls       []string
	beginErr    error
	commitErr   error
	rollbackErr error
}

func (tm *fakeTM) Begin(context.Context) error {
	tm.calls = append(tm.calls, "begin")
	if tm.beginErr != nil {
		return tm.beginErr
	}
	tm.depth++
	return nil
}

func (tm *fakeTM) Commit(context.Context) error {
	tm.calls = append(tm.calls, "commit")
	if tm.commitErr != nil {
		return tm.commitErr
	}
	tm.depth--
	return nil
}

func (tm *fakeTM) Rollback(context.Context) error {
	tm.calls = append(tm.calls, "rollback")
	if tm.rollbackErr != nil {
		return tm.rollbackErr
	}
	tm.depth--
	return nil
}

func (tm *fakeTM) Depth() int {
	return tm.depth
}

// fakeRows serves rows from memory.
type fakeRows struct {
	cols []string
	rows [][]any
	pos  int
	err  error
}

func newFakeRows(cols []string, rows ...[]any) *fakeRows {
	return &fakeRows{cols: cols, rows: rows}
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }
func (r *fakeRows) Err() error                 { return r.err }
func (r *fakeRows) Close() error               { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case sql.Scanner:
			if err := d.Scan(row[i]); err != nil {
				return err
			}
		case *any:
			*d = row[i]
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func newTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return tp, exporter
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

var testInfo = ConnectionInfo{CurrentDatabase: "app", Version: "8.0.36"}

// establishTest opens a TracedConn over a fake connection.
func establishTest(t *testing.T, opts ...Option) (*TracedConn, *fakeConn, *tracetest.InMemoryExporter) {
	t.Helper()

	tp, exporter := newTestTracer(t)
	inner := newFakeConn(testInfo)

	conn, err := Establish(context.Background(), &fakeDriver{conn: inner}, "mysql://localhost/app",
		append([]Option{WithTracerProvider(tp)}, opts...)...)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	exporter.Reset()

	return conn, inner, exporter
}
