package util

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff calls fn up to maxRetries+1 times.
// fn receives the current attempt number (0-indexed) and returns how long to wait
// before the next attempt along with its error. A nil error ends the loop with success;
// a non-nil error with a zero wait is treated as permanent and returned as is.
// If the context is cancelled, RetryWithBackoff returns the context error immediately.
func RetryWithBackoff(ctx context.Context, maxRetries int, fn func(attempt int) (time.Duration, error)) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var wait time.Duration
		wait, lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if wait <= 0 {
			return lastErr
		}

		// Don't wait after the last attempt
		if attempt == maxRetries {
			break
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// ExponentialBackoff returns base * 2^attempt.
func ExponentialBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<attempt)
}
