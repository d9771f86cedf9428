package dbconn

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/sentinel-dbtrace/tracing"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	// This identifies the library in traces and metrics.
	scope = "github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

// config holds the configuration for instrumentation.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	// When no global provider is configured, a no-op tracer is used (safe, but no traces).
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Spans starts and finishes operation spans.
	Spans *tracing.Manager

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// Dialect selects db.system and the capability probe.
	// Default: MySQL
	Dialect Dialect

	// InstanceName identifies a specific connection target, such as
	// "primary" or "replica". Added as "db.instance" when set.
	InstanceName string

	// QuerySanitizer rewrites statements before they are recorded.
	// If nil, statements are recorded as-is.
	QuerySanitizer func(query string) string

	// DisableQuery omits db.statement from spans.
	DisableQuery bool

	// SkipSubstrings overrides the tracing skip list when non-nil.
	SkipSubstrings []string

	// Logger receives debug events about connection setup.
	Logger zerolog.Logger
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Dialect:        MySQL,
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	spanOpts := []tracing.Option{
		tracing.WithTracerProvider(cfg.TracerProvider),
		tracing.WithLogger(cfg.Logger),
	}
	if cfg.SkipSubstrings != nil {
		spanOpts = append(spanOpts, tracing.WithSkipSubstrings(cfg.SkipSubstrings...))
	}
	cfg.Spans = tracing.New(spanOpts...)

	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Initialize metrics (ignore errors, will just be nil if fails)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	conn, _ := dbconn.Establish(ctx, drv, dsn,
//	    dbconn.WithTracerProvider(tp),
//	)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		if tp != nil {
			cfg.TracerProvider = tp
		}
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		if mp != nil {
			cfg.MeterProvider = mp
		}
	}
}

// WithDialect selects the database system. It sets the "db.system"
// attribute and the query used to discover db.name and db.version.
//
// Example:
//
//	conn, _ := dbconn.Establish(ctx, drv, dsn,
//	    dbconn.WithDialect(dbconn.PostgreSQL),
//	)
func WithDialect(d Dialect) Option {
	return func(cfg *config) {
		cfg.Dialect = d
	}
}

// WithInstanceName sets an identifier for the connection target.
// This is added as the "db.instance" attribute on all spans.
//
// Example - Primary/Replica setup:
//
//	writer := dbconn.WrapDriver(drv, dbconn.WithInstanceName("primary"))
//	reader := dbconn.WrapDriver(drv, dbconn.WithInstanceName("replica"))
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithQuerySanitizer sets a function applied to statements before they are
// recorded in span names and the "db.statement" attribute.
//
// Example:
//
//	conn, _ := dbconn.Establish(ctx, drv, dsn,
//	    dbconn.WithQuerySanitizer(dbconn.DefaultQuerySanitizer),
//	)
//	// Query: "SELECT * FROM users WHERE id = 123"
//	// Recorded as: "SELECT * FROM users WHERE id = ?"
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery omits the "db.statement" attribute from spans.
// Span names still carry the (sanitized) statement.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}

// WithSkipSubstrings replaces the statement fragments that suppress tracing.
// See tracing.WithSkipSubstrings.
func WithSkipSubstrings(substrings ...string) Option {
	return func(cfg *config) {
		cfg.SkipSubstrings = make([]string, len(substrings))
		copy(cfg.SkipSubstrings, substrings)
	}
}

// WithLogger sets the logger for connection lifecycle events.
//
// Example:
//
//	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
//	conn, _ := dbconn.Establish(ctx, drv, dsn, dbconn.WithLogger(logger))
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}
