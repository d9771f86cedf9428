package dbconn

import "context"

// Compile-time interface check.
var _ Driver = (*tracedDriver)(nil)

// WrapDriver wraps drv so every connection it establishes is a TracedConn.
// Use it where a Driver is expected, such as pool.New.
//
// Example:
//
//	drv := dbconn.WrapDriver(sqlconn.Driver{DriverName: "mysql"},
//	    dbconn.WithInstanceName("primary"),
//	)
//	p, err := pool.New(drv, dsn)
func WrapDriver(drv Driver, opts ...Option) Driver {
	return &tracedDriver{
		driver: drv,
		cfg:    newConfig(opts...),
	}
}

// tracedDriver wraps a Driver with instrumentation.
type tracedDriver struct {
	driver Driver
	cfg    *config
}

// Establish implements Driver.
func (d *tracedDriver) Establish(ctx context.Context, url string) (Conn, error) {
	c, err := establish(ctx, d.driver, url, d.cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
