package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config describes an exponential backoff policy
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// ShouldRetry reports whether err is worth another attempt; nil retries everything
	ShouldRetry func(err error) bool
}

// DefaultConfig suits interactive calls: three quick attempts
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Backoff is the wait after the given failed attempt (1-based), capped at MaxBackoff
func (c *Config) Backoff(attempt int) time.Duration {
	wait := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= c.BackoffMultiplier
		if wait >= float64(c.MaxBackoff) {
			return c.MaxBackoff
		}
	}
	return min(time.Duration(wait), c.MaxBackoff)
}

func (c *Config) retryable(err error) bool {
	return c.ShouldRetry == nil || c.ShouldRetry(err)
}

// Retryable is one attempt of an operation
type Retryable[T any] func(ctx context.Context) (T, error)

// Do runs fn until it succeeds, the attempts run out or ctx is done.
// Errors rejected by cfg.ShouldRetry come back unwrapped after that attempt;
// exhausting the attempts wraps the last error with the operation name.
func Do[T any](ctx context.Context, cfg *Config, log *slog.Logger, op string, fn Retryable[T]) (T, error) {
	var zero T
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		var result T
		if result, err = fn(ctx); err == nil {
			return result, nil
		}
		if !cfg.retryable(err) {
			return zero, err
		}
		if attempt >= cfg.MaxAttempts {
			return zero, fmt.Errorf("operation '%s' failed after %d attempts: %w", op, attempt, err)
		}

		wait := cfg.Backoff(attempt)
		log.Warn("retrying after failure",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
