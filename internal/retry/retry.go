// Package retry wraps a single external call with bounded, exponential
// backoff. Callers run on background/batch paths, so the blocking sleep
// between attempts is acceptable.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config bounds the retry loop. MaxRetries counts retries after the initial
// attempt: MaxRetries=2 means at most three invocations.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Do invokes op, retrying while retryable(err) reports the failure transient.
// The delay doubles each attempt, capped at MaxBackoff. A non-retryable error
// propagates immediately; context cancellation during the sleep returns
// ctx.Err(). After the retries are exhausted the last error is returned,
// wrapped with the attempt count.
func Do[T any](ctx context.Context, cfg Config, retryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return zero, fmt.Errorf("after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if cfg.MaxBackoff > 0 && d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	return d
}
