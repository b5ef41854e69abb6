// Package retry runs an operation under a bounded or unbounded retry policy
// with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned when a bounded policy runs out of attempts.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy describes how often an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts. Zero or negative means unbounded.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter is the fraction of the delay randomly added or removed (0.1 = ±10%).
	Jitter float64

	// OnRetry, if set, is called after each failed attempt with the delay
	// before the next one.
	OnRetry func(attempt int, err error, next time.Duration)
}

// NewPolicy returns a policy with a doubling backoff and 10% jitter.
func NewPolicy(maxAttempts int, initial, max time.Duration) Policy {
	return Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initial,
		MaxDelay:     max,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Bounded reports whether the policy gives up eventually.
func (p Policy) Bounded() bool {
	return p.MaxAttempts > 0
}

// backOff builds the delay schedule. Elapsed time never stops it; only
// MaxAttempts and the caller's context do.
func (p Policy) backOff() backoff.BackOff {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Multiplier = mult
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	if !p.Bounded() {
		return b
	}
	return backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
}

// Do calls op until it succeeds, the policy is exhausted, or ctx is done.
// It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var attempts int
	err := backoff.RetryNotify(
		func() error {
			attempts++
			return op(ctx)
		},
		backoff.WithContext(p.backOff(), ctx),
		func(err error, next time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(attempts, err, next)
			}
		},
	)
	switch {
	case err == nil:
		return attempts, nil
	case ctx.Err() != nil:
		return attempts, ctx.Err()
	default:
		return attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
	}
}
