package pool

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// DialRateLimitConfig limits how fast the pool opens new connections.
// Reused idle connections are never limited.
type DialRateLimitConfig struct {
	// DialsPerSecond is the maximum sustained establish rate.
	DialsPerSecond float64

	// Burst is the number of establishes allowed at once, for example
	// when a pool is warmed. Values below 1 are treated as 1.
	Burst int

	// WaitOnLimit makes establish wait for a token, respecting the
	// context deadline. If false, establish fails with ErrDialRateLimited.
	WaitOnLimit bool
}

// DefaultDialRateLimitConfig returns 10 dials per second with a burst of 5.
func DefaultDialRateLimitConfig() DialRateLimitConfig {
	return DialRateLimitConfig{
		DialsPerSecond: 10,
		Burst:          5,
		WaitOnLimit:    true,
	}
}

// ErrDialRateLimited is returned when an establish is rejected by the dial
// rate limit.
var ErrDialRateLimited = errors.New("pool: dial rate limit exceeded")

// newDialLimiter creates the dial limiter, or nil when disabled.
func newDialLimiter(cfg *config) *rate.Limiter {
	if cfg.DialRateLimit == nil || cfg.DialRateLimit.DialsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.DialRateLimit.DialsPerSecond), max(cfg.DialRateLimit.Burst, 1))
}

// waitDial takes a dial token. Rejections are not breaker failures because
// the database was never contacted.
func (p *Pool) waitDial(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}

	if !p.cfg.DialRateLimit.WaitOnLimit {
		if !p.limiter.Allow() {
			return ErrDialRateLimited
		}
		return nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return ErrDialRateLimited
	}
	return nil
}
