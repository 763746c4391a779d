package adapter

import (
	"context"
	"fmt"
	"time"
)

// DefaultBackoff is the base delay before the first retry.
const DefaultBackoff = 500 * time.Millisecond

// Permanent marks an error that must not be retried.
type Permanent struct {
	Err error
}

func (e *Permanent) Error() string { return "non-retriable error: " + e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *Permanent) Unwrap() error { return e.Err }

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts (base, 2*base, 4*base...). It stops early on success, on a
// *Permanent error and on context cancellation. name prefixes every error.
func Retry(ctx context.Context, name string, retries int, base time.Duration, fn func(context.Context) error) error {
	if base <= 0 {
		base = DefaultBackoff
	}

	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if perm, ok := lastErr.(*Permanent); ok {
			return fmt.Errorf("%s: %w", name, perm)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
