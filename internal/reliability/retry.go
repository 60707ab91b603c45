package reliability

import (
	"context"
	"errors"
	"time"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

type transienter interface {
	Transient() bool
}

// IsTransient reports whether an error advertises itself as retryable.
func IsTransient(err error) bool {
	var t transienter
	return errors.As(err, &t) && t.Transient()
}

// Retry runs op up to attempts times with a fixed inter-attempt delay,
// retrying only transient errors. The retry exists because record creation
// and record read are not atomic upstream: a miss can race a concurrent
// create, and waiting gives the create time to land.
func Retry(ctx context.Context, attempts int, delay time.Duration, op func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
	}
	return err
}
