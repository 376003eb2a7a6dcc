package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// RetryPolicy is a bounded number of attempts with a fixed delay between
// them, there is no jitter and no growth.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so Retry gives up without spending the remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a permanent error or the policy
// runs out of attempts. It returns the number of attempts made and the error
// of the last one. Cancellation of ctx is honored between attempts.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	policy = policy.WithDefaults()

	var out T
	var err error
	attempt := 0
	for attempt < policy.MaxRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return out, attempt, err
		}

		attempt++
		out, err = fn(ctx, attempt)
		if err == nil {
			return out, attempt, nil
		}

		var permanent permanentError
		if errors.As(err, &permanent) {
			return out, attempt, permanent.err
		}
		if attempt >= policy.MaxRetries {
			break
		}

		slog.DebugContext(ctx, "attempt failed, retrying", "attempt", attempt, "max", policy.MaxRetries, "err", err)
		if !sleep(ctx, policy.Delay) {
			return out, attempt, err
		}
	}
	return out, attempt, err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
