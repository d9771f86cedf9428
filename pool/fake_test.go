package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

var errNoRows = errors.New("fake: no rows")

// fakeDriver fails with the queued errors, then hands out fresh connections.
type fakeDriver struct {
	mu       sync.Mutex
	errs     []error
	failAll  error
	probeErr error
	calls    int
	conns    []*fakeConn
}

func (d *fakeDriver) Establish(context.Context, string) (dbconn.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.failAll != nil {
		return nil, d.failAll
	}
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}

	c := &fakeConn{id: d.calls, probeErr: d.probeErr}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDriver) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeConn struct {
	mu       sync.Mutex
	id       int
	pingErr  error
	probeErr error
	tm       fakeTM
	closed   int
}

func (c *fakeConn) BatchExecute(context.Context, string) error { return nil }

func (c *fakeConn) Load(context.Context, dbconn.Query) (dbconn.Rows, error) {
	if c.probeErr != nil {
		return nil, c.probeErr
	}
	return nil, errNoRows
}

func (c *fakeConn) ExecuteReturningCount(context.Context, dbconn.Query) (int64, error) {
	return 1, nil
}

func (c *fakeConn) Transaction(ctx context.Context, body dbconn.TxFunc) error {
	return dbconn.RunTransaction(ctx, &c.tm, c, body)
}

func (c *fakeConn) TransactionManager() dbconn.TransactionManager { return &c.tm }

func (c *fakeConn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTM struct{ depth int }

func (tm *fakeTM) Begin(context.Context) error    { tm.depth++; return nil }
func (tm *fakeTM) Commit(context.Context) error   { tm.depth--; return nil }
func (tm *fakeTM) Rollback(context.Context) error { tm.depth--; return nil }
func (tm *fakeTM) Depth() int                     { return tm.depth }

// fastRetry keeps retry tests quick.
func fastRetry(maxRetries uint) Option {
	return WithRetryConfig(RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
		JitterFactor:    0.1,
	})
}
