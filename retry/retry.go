// Package retry provides the single bounded backoff policy applied to every
// external capability call (data fetch, embedding, generation).
package retry

import (
	"context"
	"time"
)

// Policy is a reusable retry configuration.
type Policy struct {
	// MaxAttempts is the total attempt count including the first call.
	// Values below 1 behave as 1.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles each
	// further attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. 0 means uncapped.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth retrying.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// DefaultPolicy is the policy used when callers configure nothing.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    8 * time.Second,
}

// Do runs fn until it succeeds, the attempts are exhausted, the error is not
// retryable, or ctx is done. The last error is returned unwrapped so callers
// can classify it.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if waitErr := sleep(ctx, delay); waitErr != nil {
				return waitErr
			}
			delay *= 2
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
