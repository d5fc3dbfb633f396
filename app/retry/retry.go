package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is wrapped into the error returned by Do when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes a fixed-interval retry schedule.
// MaxAttempts counts the initial call, so MaxAttempts=1 means no retries.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable decides whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, err error)
}

func NewFixedPolicy(maxAttempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay}
}

func (p Policy) WithRetryable(fn func(err error) bool) Policy {
	p.Retryable = fn
	return p
}

func (p Policy) WithOnRetry(fn func(attempt int, err error)) Policy {
	p.OnRetry = fn
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	attempts := max(p.MaxAttempts, 1)
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. A non-retryable error is returned as is; running out
// of attempts returns an error wrapping both ErrExhausted and the last error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var (
		attempt   int
		permanent bool
	)

	operation := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, _ time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
	}
}
