package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), NewFixedPolicy(5, time.Millisecond), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	var retried []int
	policy := NewFixedPolicy(4, time.Millisecond).WithOnRetry(func(attempt int, err error) {
		assert.ErrorIs(t, err, errTransient)
		retried = append(retried, attempt)
	})

	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, retried)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestDoReturnsNonRetryableImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	policy := NewFixedPolicy(5, time.Millisecond).WithRetryable(func(err error) bool {
		return errors.Is(err, errTransient)
	})

	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDoSingleAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDoWaitsTheFixedDelay(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Do(context.Background(), NewFixedPolicy(3, 20*time.Millisecond), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestDoCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Do(ctx, NewFixedPolicy(3, time.Hour), func(ctx context.Context) error {
		return errTransient
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, NewFixedPolicy(10, time.Hour), func(ctx context.Context) error {
		calls++
		cancel()
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
