package dbconn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kroma-labs/sentinel-dbtrace/tracing"
)

// Compile-time interface check.
var _ Conn = (*TracedConn)(nil)

// State is the lifecycle stage of a TracedConn.
type State int

const (
	StateUninitialized State = iota
	StateEstablishing
	StateProbing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEstablishing:
		return "establishing"
	case StateProbing:
		return "probing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TracedConn wraps a Conn and traces connection setup, statements and
// transactions. It is itself a Conn and can replace the wrapped one anywhere.
//
// Like the connection it owns, a TracedConn must not be shared between
// goroutines.
type TracedConn struct {
	inner Conn
	id    uuid.UUID
	info  ConnectionInfo
	cfg   *config
	state State
}

// Establish opens a connection through drv and wraps it.
//
// The whole setup is traced as a "connection" span labelled "establish".
// Once connected, the dialect's probe query discovers the database name and
// server version, which are recorded on that span and on every later span.
//
// A driver error is returned unchanged. A probe failure returns a
// *ConfigurationError holding the still-open underlying connection.
//
// Example:
//
//	conn, err := dbconn.Establish(ctx, sqlconn.Driver{DriverName: "mysql"}, dsn,
//	    dbconn.WithTracerProvider(tp),
//	)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
func Establish(ctx context.Context, drv Driver, url string, opts ...Option) (*TracedConn, error) {
	return establish(ctx, drv, url, newConfig(opts...))
}

func establish(ctx context.Context, drv Driver, url string, cfg *config) (*TracedConn, error) {
	c := &TracedConn{
		id:    uuid.New(),
		cfg:   cfg,
		state: StateEstablishing,
	}

	cfg.Logger.Debug().
		Str("db.system", cfg.Dialect.System).
		Str("conn.id", c.id.String()).
		Msg("establishing database connection")

	op := c.begin(ctx, kindConnection, "establish", cfg.baseAttributes(ConnectionInfo{}))
	var err error
	defer op.finish(&err)

	inner, err := drv.Establish(op.ctx, url)
	if err != nil {
		return nil, err
	}

	c.state = StateProbing
	cfg.Logger.Debug().Str("conn.id", c.id.String()).Msg("querying connection information")

	info, probeErr := cfg.Dialect.probe(op.ctx, inner)
	if probeErr != nil {
		err = &ConfigurationError{Conn: inner, Err: probeErr}
		return nil, err
	}

	op.handle.SetAttributes(
		attribute.String(AttrDBName, info.CurrentDatabase),
		attribute.String(AttrDBVersion, info.Version),
	)

	cfg.Logger.Debug().
		Str("conn.id", c.id.String()).
		Str("db.name", info.CurrentDatabase).
		Str("db.version", info.Version).
		Msg("database connection established")

	c.inner = inner
	c.info = info
	c.state = StateReady

	return c, nil
}

// ID returns the identifier generated for this connection.
// Transaction spans are named after it.
func (c *TracedConn) ID() uuid.UUID {
	return c.id
}

// Info returns the server identity captured at establish time.
func (c *TracedConn) Info() ConnectionInfo {
	return c.info
}

// State returns the lifecycle stage of the connection.
func (c *TracedConn) State() State {
	return c.state
}

// Unwrap returns the wrapped connection.
func (c *TracedConn) Unwrap() Conn {
	return c.inner
}

// BatchExecute implements Conn.
func (c *TracedConn) BatchExecute(ctx context.Context, sql string) (err error) {
	if err := c.ready(); err != nil {
		return err
	}

	stmt := c.cfg.statement(sql)
	op := c.begin(ctx, kindQuery, stmt, c.cfg.queryAttributes(c.info, stmt))
	defer op.finish(&err)

	return c.inner.BatchExecute(op.ctx, sql)
}

// Load implements Conn.
// The span is labelled with the rendered query; it ends when Load returns,
// not when the rows are drained.
func (c *TracedConn) Load(ctx context.Context, q Query) (rows Rows, err error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	stmt := c.cfg.statement(Render(q))
	op := c.begin(ctx, kindQuery, stmt, c.cfg.queryAttributes(c.info, stmt))
	defer op.finish(&err)

	return c.inner.Load(op.ctx, q)
}

// ExecuteReturningCount implements Conn.
func (c *TracedConn) ExecuteReturningCount(ctx context.Context, q Query) (n int64, err error) {
	if err := c.ready(); err != nil {
		return 0, err
	}

	stmt := c.cfg.statement(Render(q))
	op := c.begin(ctx, kindQuery, stmt, c.cfg.queryAttributes(c.info, stmt))
	defer op.finish(&err)

	return c.inner.ExecuteReturningCount(op.ctx, q)
}

// TransactionManager implements Conn by delegating to the wrapped connection.
func (c *TracedConn) TransactionManager() TransactionManager {
	return c.inner.TransactionManager()
}

// Ping implements Conn. Pings are not traced.
func (c *TracedConn) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.inner.Ping(ctx)
}

// Close implements Conn. Closing twice is a no-op.
func (c *TracedConn) Close() error {
	switch c.state {
	case StateClosed:
		return nil
	case StateReady:
		c.state = StateClosed
		c.cfg.Logger.Debug().Str("conn.id", c.id.String()).Msg("closing database connection")
		return c.inner.Close()
	default:
		c.state = StateClosed
		return nil
	}
}

func (c *TracedConn) ready() error {
	switch c.state {
	case StateReady:
		return nil
	case StateClosed:
		return ErrConnClosed
	default:
		return ErrConnNotReady
	}
}

// operation is one traced call on a connection.
type operation struct {
	ctx    context.Context
	handle *tracing.Handle
	conn   *TracedConn
	kind   string
	start  time.Time
}

func (c *TracedConn) begin(ctx context.Context, kind, label string, attrs []attribute.KeyValue) *operation {
	ctx, h := c.cfg.Spans.Start(ctx, kind, label, attrs...)
	return &operation{
		ctx:    ctx,
		handle: h,
		conn:   c,
		kind:   kind,
		start:  time.Now(),
	}
}

// finish must be deferred directly so that it observes panics.
// The panic is re-raised after the span is closed.
func (op *operation) finish(errp *error) {
	if r := recover(); r != nil {
		op.done(fmt.Errorf("panic: %v", r))
		panic(r)
	}
	op.done(*errp)
}

func (op *operation) done(err error) {
	op.handle.RecordError(err)
	op.conn.cfg.Metrics.recordOperationDuration(
		op.ctx,
		time.Since(op.start),
		op.kind,
		op.conn.cfg.baseAttributes(op.conn.info),
		err,
	)
	op.handle.Finish()
}
