package tracing

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/sentinel-dbtrace/tracing"

	// DefaultSkipSubstring marks queries against the session table.
	// They are frequent and carry little information, so they are not traced.
	DefaultSkipSubstring = " `Session` "
)

// config holds the configuration for the span manager.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// SkipSubstrings lists label fragments that suppress span creation.
	SkipSubstrings []string

	// Logger receives trace-level events about skipped operations.
	Logger zerolog.Logger
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		SkipSubstrings: []string{DefaultSkipSubstring},
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)

	return cfg
}

// Option configures a Manager.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		if tp != nil {
			cfg.TracerProvider = tp
		}
	}
}

// WithSkipSubstrings replaces the label fragments that suppress tracing.
// Calling it with no arguments disables skipping.
//
// Example:
//
//	mgr := tracing.New(
//	    tracing.WithSkipSubstrings(" `Session` ", " `AuditLog` "),
//	)
func WithSkipSubstrings(substrings ...string) Option {
	return func(cfg *config) {
		cfg.SkipSubstrings = make([]string, len(substrings))
		copy(cfg.SkipSubstrings, substrings)
	}
}

// WithLogger sets the logger used for skipped-operation events.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}
