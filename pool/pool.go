package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

// ErrPoolClosed is returned by Get and Warm after Close.
var ErrPoolClosed = errors.New("pool: closed")

// Pool hands out one connection per borrower.
//
// Connections come from a dbconn.Driver, usually one returned by
// dbconn.WrapDriver so that every pooled connection is instrumented.
// Idle connections are health checked with Ping before reuse.
type Pool struct {
	drv     dbconn.Driver
	url     string
	cfg     *config
	sem     *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker[dbconn.Conn]
	limiter *rate.Limiter
	reg     metric.Registration

	mu           sync.Mutex
	idle         []dbconn.Conn
	open         int
	inUse        int
	closed       bool
	waitCount    int64
	waitDuration time.Duration
	discarded    int64
}

// New creates a pool of connections to url. No connection is established
// until Get or Warm is called.
//
// Example:
//
//	drv := dbconn.WrapDriver(sqlconn.Driver{DriverName: "mysql"})
//	p, err := pool.New(drv, dsn,
//	    pool.WithMaxOpen(20),
//	    pool.WithBreakerConfig(pool.DefaultBreakerConfig()),
//	)
func New(drv dbconn.Driver, url string, opts ...Option) (*Pool, error) {
	cfg := newConfig(opts...)

	p := &Pool{
		drv:     drv,
		url:     url,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxOpen)),
		breaker: newBreaker(cfg),
		limiter: newDialLimiter(cfg),
	}

	reg, err := registerPoolMetrics(cfg.MeterProvider.Meter(scope), p)
	if err != nil {
		return nil, err
	}
	p.reg = reg

	return p, nil
}

// Get returns a connection, reusing an idle one when it still answers Ping.
// It blocks while MaxOpen connections are leased, until ctx is done.
func (p *Pool) Get(ctx context.Context) (*Lease, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}

	for {
		conn, err := p.popIdle()
		if err != nil {
			p.sem.Release(1)
			return nil, err
		}
		if conn == nil {
			break
		}

		if err := conn.Ping(ctx); err != nil {
			p.cfg.Logger.Debug().
				Err(err).
				Str("pool", p.cfg.Name).
				Msg("discarding unhealthy idle connection")
			p.drop(conn, false)
			continue
		}

		return p.lease(conn), nil
	}

	conn, err := p.establish(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	p.mu.Lock()
	p.open++
	p.inUse++
	p.mu.Unlock()

	return &Lease{Conn: conn, pool: p}, nil
}

// Warm establishes up to n idle connections concurrently. The count is
// bounded by free idle room and by MaxOpen minus the open connections, and
// stops early when leases hold every slot. Connections established before
// an error stay in the pool.
func (p *Pool) Warm(ctx context.Context, n int) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	n = min(n, p.cfg.MaxIdle-len(p.idle), p.cfg.MaxOpen-p.open)
	p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	// Each dial holds a slot like a lease, so warming never pushes the
	// database past MaxOpen while callers hold connections.
	for range n {
		if !p.sem.TryAcquire(1) {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)

			conn, err := p.establish(ctx)
			if err != nil {
				return err
			}

			p.mu.Lock()
			p.open++
			p.mu.Unlock()

			p.putIdle(conn)
			return nil
		})
	}

	return g.Wait()
}

// Close closes idle connections. Leased connections are closed when they
// are released. Get and Warm fail with ErrPoolClosed afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	p.mu.Unlock()

	var err error
	if p.reg != nil {
		err = p.reg.Unregister()
	}
	for _, conn := range idle {
		err = errors.Join(err, conn.Close())
	}
	return err
}

func (p *Pool) acquire(ctx context.Context) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	if p.sem.TryAcquire(1) {
		return nil
	}

	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.mu.Lock()
	p.waitCount++
	p.waitDuration += time.Since(start)
	p.mu.Unlock()
	return nil
}

// popIdle takes the most recently returned idle connection, or nil if
// there is none.
func (p *Pool) popIdle() (dbconn.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if len(p.idle) == 0 {
		return nil, nil
	}

	conn := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return conn, nil
}

func (p *Pool) lease(conn dbconn.Conn) *Lease {
	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
	return &Lease{Conn: conn, pool: p}
}

// putIdle keeps conn for reuse, or closes it when the pool is full or closed.
func (p *Pool) putIdle(conn dbconn.Conn) {
	p.mu.Lock()
	if p.closed || len(p.idle) >= p.cfg.MaxIdle || p.open > p.cfg.MaxOpen {
		p.open--
		p.mu.Unlock()
		_ = conn.Close()
		return
	}
	p.idle = append(p.idle, conn)
	p.mu.Unlock()
}

// drop closes conn and forgets it.
func (p *Pool) drop(conn dbconn.Conn, leased bool) {
	p.mu.Lock()
	p.open--
	p.discarded++
	if leased {
		p.inUse--
	}
	p.mu.Unlock()

	if err := conn.Close(); err != nil {
		p.cfg.Logger.Debug().Err(err).Str("pool", p.cfg.Name).Msg("closing discarded connection")
	}
}

// release returns a leased conn. Connections left inside a transaction
// cannot be reused and are dropped.
func (p *Pool) release(conn dbconn.Conn) {
	defer p.sem.Release(1)

	if tm := conn.TransactionManager(); tm != nil && tm.Depth() != 0 {
		p.cfg.Logger.Warn().
			Str("pool", p.cfg.Name).
			Int("depth", tm.Depth()).
			Msg("connection released inside a transaction")
		p.drop(conn, true)
		return
	}

	p.mu.Lock()
	p.inUse--
	p.mu.Unlock()
	p.putIdle(conn)
}

// establish dials a new connection, retrying transient failures.
func (p *Pool) establish(ctx context.Context) (dbconn.Conn, error) {
	attempt := 0
	opts := append(p.cfg.RetryConfig.options(), backoff.WithNotify(func(err error, next time.Duration) {
		attempt++
		p.cfg.Logger.Debug().
			Err(err).
			Str("pool", p.cfg.Name).
			Int("attempt", attempt).
			Dur("next", next).
			Msg("retrying database connection")
	}))

	return backoff.Retry(ctx, func() (dbconn.Conn, error) {
		conn, err := p.dial(ctx)
		if err == nil {
			return conn, nil
		}

		var cfgErr *dbconn.ConfigurationError
		if errors.As(err, &cfgErr) {
			if cfgErr.Conn != nil {
				_ = cfgErr.Conn.Close()
			}
			return nil, backoff.Permanent(err)
		}
		if isBreakerRejection(err) || errors.Is(err, ErrDialRateLimited) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, opts...)
}

func (p *Pool) dial(ctx context.Context) (dbconn.Conn, error) {
	if err := p.waitDial(ctx); err != nil {
		return nil, err
	}
	if p.breaker == nil {
		return p.drv.Establish(ctx, p.url)
	}
	return p.breaker.Execute(func() (dbconn.Conn, error) {
		return p.drv.Establish(ctx, p.url)
	})
}

// Lease is a connection borrowed from a Pool. It implements dbconn.Conn;
// Close returns the connection to the pool instead of closing it.
type Lease struct {
	dbconn.Conn

	pool *Pool
	once sync.Once
}

// Release returns the connection to the pool. Calling it more than once,
// or after Discard, is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() { l.pool.release(l.Conn) })
}

// Discard closes the connection instead of returning it to the pool.
// Use it after errors that leave the session in an unknown state.
func (l *Lease) Discard() {
	l.once.Do(func() {
		l.pool.drop(l.Conn, true)
		l.pool.sem.Release(1)
	})
}

// Close implements dbconn.Conn by releasing the lease.
func (l *Lease) Close() error {
	l.Release()
	return nil
}

// Stats is a snapshot of pool usage.
type Stats struct {
	MaxOpen      int
	Open         int
	Idle         int
	InUse        int
	WaitCount    int64
	WaitDuration time.Duration
	Discarded    int64
	// BreakerState is empty when the breaker is disabled.
	BreakerState string
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		MaxOpen:      p.cfg.MaxOpen,
		Open:         p.open,
		Idle:         len(p.idle),
		InUse:        p.inUse,
		WaitCount:    p.waitCount,
		WaitDuration: p.waitDuration,
		Discarded:    p.discarded,
	}
	p.mu.Unlock()

	if p.breaker != nil {
		s.BreakerState = p.breaker.State().String()
	}
	return s
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.cfg.Name
}
