// Package retry runs an operation with capped exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config configures exponential backoff retry behavior
type Config struct {
	MaxAttempts int           // Total attempts including the first one
	BaseDelay   time.Duration // Delay after the first failure
	MaxDelay    time.Duration // Upper bound for any single delay
	Multiplier  float64       // Exponential backoff multiplier

	// OnRetry is called after a failed attempt that will be retried
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig mirrors the connection policy for the search index:
// five attempts, waiting 2s and doubling up to 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// ExhaustedError is returned when every attempt failed
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do executes fn until it succeeds, the attempts are exhausted or ctx is done.
// Retry is skipped on context cancellation.
func Do[T any](ctx context.Context, config Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}

	var lastErr error
	backoff := config.BaseDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt == config.MaxAttempts {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, backoff, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * config.Multiplier)
			if config.MaxDelay > 0 && backoff > config.MaxDelay {
				backoff = config.MaxDelay
			}
		}
	}

	return zero, &ExhaustedError{Attempts: config.MaxAttempts, Last: lastErr}
}
