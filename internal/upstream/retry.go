package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds retries of transient upstream failures.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
	Max        time.Duration
}

// DefaultRetryPolicy matches the API_MAX_RETRIES/API_BACKOFF defaults.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Base: 500 * time.Millisecond, Max: 10 * time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = DefaultRetryPolicy.Base
	}
	b := retry.NewExponential(base)
	if p.Max > 0 {
		b = retry.WithCappedDuration(p.Max, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// Do runs fn, retrying it while it fails transiently. A server-provided
// Retry-After longer than the backoff step is waited out first. The last
// failure is returned once the budget is spent; permanent failures return
// immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		if wait := retryAfter(err); wait > 0 {
			if serr := Sleep(ctx, wait); serr != nil {
				return serr
			}
		}
		return retry.RetryableError(err)
	})
}

// Call is Do for functions that produce a value.
func Call[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) Result[T] {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return Capture(out, err)
}

func retryAfter(err error) time.Duration {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.RetryAfter
	}
	return 0
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
