// Package retry runs fallible operations under a bounded exponential backoff
// policy. The policy itself is pure (Delay is a function of the attempt
// number) and cancellation is handled by Do through the caller's context.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	MaxAttempts int           // total tries including the first
	BaseDelay   time.Duration // wait before the second try
	MaxDelay    time.Duration // cap per wait; 0 means uncapped

	// Retryable reports whether a failed attempt may be retried. Nil retries
	// every error.
	Retryable func(error) bool
	// OnRetry is called before each wait with the failure and the delay.
	OnRetry func(err error, delay time.Duration)
}

// DefaultPolicy waits 1s then 2s across three attempts.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Delay returns the wait before retry n (1-based): BaseDelay * 2^(n-1),
// capped at MaxDelay.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// policyBackOff adapts Policy to backoff.BackOff.
type policyBackOff struct {
	p Policy
	n int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.n++
	return b.p.Delay(b.n)
}

func (b *policyBackOff) Reset() { b.n = 0 }

// Do calls op until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts, or ctx ends. When ctx ends, ctx's error is returned so callers
// can tell cancellation apart from failure.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	operation := func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return v, backoff.Permanent(ctxErr)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(&policyBackOff{p: p}),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	v, err := backoff.Retry(ctx, operation, opts...)
	if err != nil && ctx.Err() != nil {
		var zero T
		return zero, ctx.Err()
	}
	return v, err
}
