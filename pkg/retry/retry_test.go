package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fast(extra ...Option) []Option {
	return append([]Option{
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}, extra...)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, fast(WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	bad := errors.New("bad credentials")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(bad)
	}, fast(WithMaxAttempts(5))...)

	assert.ErrorIs(t, err, bad)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	retries := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("still down")
	}, fast(WithMaxAttempts(3), WithOnRetry(func(int, error, time.Duration) { retries++ }))...)

	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestDo_RetryIf(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("not retryable")
	}, fast(WithMaxAttempts(5), WithRetryIf(func(error) bool { return false }))...)

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	v, err := DoWithData(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	}, fast()...)

	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}
