package pool

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/sentinel-dbtrace/pool"

	// DefaultMaxOpen is the default bound on connections handed out at once.
	DefaultMaxOpen = 10

	// DefaultMaxIdle matches database/sql's default idle pool size.
	DefaultMaxIdle = 2

	// defaultName identifies the pool in metrics and breaker events
	// when WithName is not used.
	defaultName = "default-db-pool"
)

// config holds the pool configuration.
type config struct {
	// Name identifies the pool in metrics, logs, and breaker state changes.
	Name string

	// MaxOpen bounds the number of leased connections.
	// Default: DefaultMaxOpen
	MaxOpen int

	// MaxIdle bounds the number of connections kept for reuse.
	// Default: DefaultMaxIdle
	MaxIdle int

	// RetryConfig controls establish retries. Nil disables retries.
	RetryConfig *RetryConfig

	// BreakerConfig controls the establish circuit breaker. Nil disables it.
	BreakerConfig *BreakerConfig

	// DialRateLimit limits new connections per second. Nil disables it.
	DialRateLimit *DialRateLimitConfig

	// MeterProvider is used for the pool gauges.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Logger receives pool events.
	Logger zerolog.Logger
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	retry := DefaultRetryConfig()
	cfg := &config{
		Name:          defaultName,
		MaxOpen:       DefaultMaxOpen,
		MaxIdle:       DefaultMaxIdle,
		RetryConfig:   &retry,
		MeterProvider: otel.GetMeterProvider(),
		Logger:        zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = DefaultMaxOpen
	}
	if cfg.MaxIdle < 0 {
		cfg.MaxIdle = 0
	}
	if cfg.MaxIdle > cfg.MaxOpen {
		cfg.MaxIdle = cfg.MaxOpen
	}

	return cfg
}

// Option configures a Pool.
type Option func(*config)

// WithName sets the pool name used in metrics and logs.
func WithName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.Name = name
		}
	}
}

// WithMaxOpen sets the maximum number of connections leased at once.
// Get blocks when the limit is reached. Values <= 0 select DefaultMaxOpen.
func WithMaxOpen(n int) Option {
	return func(cfg *config) {
		cfg.MaxOpen = n
	}
}

// WithMaxIdle sets the maximum number of idle connections kept for reuse.
// It is capped at the MaxOpen limit.
func WithMaxIdle(n int) Option {
	return func(cfg *config) {
		cfg.MaxIdle = n
	}
}

// WithRetryConfig configures establish retries.
//
// Example:
//
//	cfg := pool.DefaultRetryConfig()
//	cfg.MaxRetries = 5
//	p, _ := pool.New(drv, dsn, pool.WithRetryConfig(cfg))
func WithRetryConfig(rc RetryConfig) Option {
	return func(cfg *config) {
		cfg.RetryConfig = &rc
	}
}

// WithNoRetry disables establish retries.
func WithNoRetry() Option {
	return func(cfg *config) {
		cfg.RetryConfig = nil
	}
}

// WithBreakerConfig enables a circuit breaker around establish.
// Once open, Get fails fast with gobreaker.ErrOpenState instead of dialing.
func WithBreakerConfig(bc BreakerConfig) Option {
	return func(cfg *config) {
		cfg.BreakerConfig = &bc
	}
}

// WithDialRateLimit limits how fast new connections are opened, smoothing
// reconnect storms after an outage.
//
// Example:
//
//	p, _ := pool.New(drv, dsn,
//	    pool.WithBreakerConfig(pool.DefaultBreakerConfig()),
//	    pool.WithDialRateLimit(pool.DefaultDialRateLimitConfig()),
//	)
func WithDialRateLimit(rl DialRateLimitConfig) Option {
	return func(cfg *config) {
		cfg.DialRateLimit = &rl
	}
}

// WithMeterProvider sets a custom meter provider for the pool gauges.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		if mp != nil {
			cfg.MeterProvider = mp
		}
	}
}

// WithLogger sets the logger for pool events.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}
