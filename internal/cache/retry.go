package cache

import (
	"context"
	"time"

	"compliance-backend/internal/apperr"
)

// RetryPolicy bounds how transient failures are retried: doubling delays
// starting at BaseDelay, capped at MaxDelay, at most MaxAttempts total calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the fetch behavior the dashboards expect:
// three attempts, 250ms → 500ms between them.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   250 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// policy is exhausted. Validation and authorization failures are returned on
// the first attempt; only errors marked transient (timeouts, connection
// failures, 5xx) are retried.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	delay := p.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !apperr.IsTransient(err) || attempt >= p.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
