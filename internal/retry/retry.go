// Package retry provides a small retry-with-backoff policy for slow,
// fallible acquisition operations such as model weight downloads.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt. The delay for
	// attempt n (counted from 1) is BaseDelay * 2^(n-1).
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay. Zero means uncapped.
	MaxDelay time.Duration

	// Jitter adds randomness to each delay (0.0 to 1.0). Zero means none.
	Jitter float64

	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the default retry policy: three attempts with a
// one second base delay and no jitter or cap.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	return c
}

// Do executes fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff between attempts. It returns the first successful result, or the
// last error once all attempts are exhausted. The sleep is context-aware:
// cancellation during backoff returns ctx.Err() immediately.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	cfg = cfg.withDefaults()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		// No sleep after the final attempt.
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(attempt, cfg)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// backoffDelay computes the delay after the given failed attempt (1-based).
func backoffDelay(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	if cfg.Jitter > 0 {
		jitterRange := delay * cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if delay < 0 {
		delay = float64(cfg.BaseDelay)
	}

	return time.Duration(delay)
}
