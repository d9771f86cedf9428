// Package pool provides a bounded pool of database connections.
//
// Each borrower gets its own connection for the duration of a lease, so the
// per-operation span scope of an instrumented connection is never shared
// between goroutines.
//
// # Quick Start
//
//	drv := dbconn.WrapDriver(sqlconn.Driver{DriverName: "mysql"})
//	p, err := pool.New(drv, dsn, pool.WithMaxOpen(20))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	lease, err := p.Get(ctx)
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//
//	n, err := lease.ExecuteReturningCount(ctx, dbconn.Raw("DELETE FROM sessions WHERE expired"))
//
// # Resilience
//
// Establishing a connection is retried with exponential backoff
// (WithRetryConfig) and can be guarded by a circuit breaker
// (WithBreakerConfig). WithDialRateLimit smooths reconnect storms by
// limiting how fast new connections are opened. Capability probe failures
// are not retried.
//
// # Observability
//
// The pool reports db.client.connections.* gauges through OpenTelemetry and
// can be scraped directly by Prometheus with NewCollector.
package pool
