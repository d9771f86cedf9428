package pool

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig controls how a failed establish is retried.
//
// Only transient failures are retried. Configuration errors from the
// capability probe and circuit breaker rejections fail immediately.
type RetryConfig struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	// Default: 3
	MaxRetries uint

	// InitialInterval is the first backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff interval.
	// Default: 5s
	MaxInterval time.Duration

	// MaxElapsedTime is the total time budget for one establish.
	// Zero means only MaxRetries applies.
	// Default: 30s
	MaxElapsedTime time.Duration

	// Multiplier controls exponential growth of backoff intervals.
	// Default: 2.0
	Multiplier float64

	// JitterFactor randomizes each interval (0.0-1.0).
	// Default: 0.5
	JitterFactor float64
}

// Default values for RetryConfig.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
	DefaultMaxElapsedTime  = 30 * time.Second
	DefaultMultiplier      = 2.0
	DefaultJitterFactor    = 0.5
)

// DefaultRetryConfig returns the retry policy used when none is configured.
//
// Configuration:
//   - 3 retries with exponential backoff (100ms → 200ms → 400ms)
//   - 30 second total time budget
//   - 50% jitter
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		MaxElapsedTime:  DefaultMaxElapsedTime,
		Multiplier:      DefaultMultiplier,
		JitterFactor:    DefaultJitterFactor,
	}
}

// newBackOff creates the exponential backoff described by cfg.
func (cfg *RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	jitter := cfg.JitterFactor
	if jitter <= 0 {
		jitter = DefaultJitterFactor
	}

	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = DefaultMultiplier
	}

	return &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialInterval,
		RandomizationFactor: jitter,
		Multiplier:          multiplier,
		MaxInterval:         cfg.MaxInterval,
	}
}

// options returns the backoff.Retry options for cfg.
// A nil config allows exactly one attempt.
func (cfg *RetryConfig) options() []backoff.RetryOption {
	if cfg == nil {
		return []backoff.RetryOption{backoff.WithMaxTries(1)}
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(cfg.newBackOff()),
		backoff.WithMaxTries(cfg.MaxRetries + 1), // +1 because initial attempt is counted
	}
	if cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.MaxElapsedTime))
	}
	return opts
}
