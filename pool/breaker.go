package pool

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

// BreakerConfig holds the configuration for the establish circuit breaker.
//
// Concepts:
//   - Closed: establish attempts reach the driver.
//   - Open: Get fails immediately with gobreaker.ErrOpenState.
//   - Half-Open: a limited number of attempts probe for recovery.
type BreakerConfig struct {
	// MaxRequests is the number of attempts allowed while half-open.
	// If 0, gobreaker allows 1.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	// If 0, counts are never cleared while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	// Default: 10s
	Timeout time.Duration

	// ConsecutiveFailures is the number of failed establishes in a row
	// that trips the breaker.
	// Default: 5
	ConsecutiveFailures uint32

	// OnStateChange is invoked when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig trips after 5 consecutive establish failures and
// probes again after 10 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// newBreaker creates the breaker guarding establish, or nil when disabled.
func newBreaker(cfg *config) *gobreaker.CircuitBreaker[dbconn.Conn] {
	if cfg.BreakerConfig == nil {
		return nil
	}
	bc := cfg.BreakerConfig

	threshold := bc.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not a database failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level := zerolog.InfoLevel
			if to == gobreaker.StateOpen {
				level = zerolog.WarnLevel
			}
			cfg.Logger.WithLevel(level).
				Str("pool", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("establish circuit breaker state changed")

			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	return gobreaker.NewCircuitBreaker[dbconn.Conn](st)
}

// isBreakerRejection reports whether err came from the breaker rather than
// the driver.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
