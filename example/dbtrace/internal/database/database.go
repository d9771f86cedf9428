package database

import (
	"context"
	"errors"

	_ "github.com/lib/pq" // Register postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
	"github.com/kroma-labs/sentinel-dbtrace/example/dbtrace/internal/config"
	"github.com/kroma-labs/sentinel-dbtrace/pool"
	"github.com/kroma-labs/sentinel-dbtrace/sqlconn"
)

// DB hands out instrumented connections from a pool.
type DB struct {
	*pool.Pool
}

// New creates a warmed pool of instrumented Postgres connections.
func New(ctx context.Context, logger zerolog.Logger) (*DB, error) {
	drv := dbconn.WrapDriver(sqlconn.Driver{DriverName: config.DefaultDriver},
		dbconn.WithDialect(dbconn.PostgreSQL),
		dbconn.WithInstanceName(config.DefaultInstance),
		dbconn.WithQuerySanitizer(dbconn.DefaultQuerySanitizer),
		dbconn.WithLogger(logger),
	)

	p, err := pool.New(drv, config.DefaultDSN,
		pool.WithName(config.DefaultPoolName),
		pool.WithMaxOpen(config.DefaultMaxOpen),
		pool.WithMaxIdle(config.DefaultMaxIdle),
		pool.WithBreakerConfig(pool.DefaultBreakerConfig()),
		pool.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	if err := prometheus.Register(pool.NewCollector(p)); err != nil {
		logger.Warn().Err(err).Msg("failed to register pool collector")
	}

	if err := p.Warm(ctx, config.DefaultWarm); err != nil {
		p.Close()
		return nil, err
	}

	return &DB{Pool: p}, nil
}

var errRenameRejected = errors.New("rename rejected")
