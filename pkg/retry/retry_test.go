package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errConflict = errors.New("conflict")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errConflict)
		}
		return nil
	}, WithMaxAttempts(5), WithInitialDelay(0))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errConflict)
	}, WithMaxAttempts(4), WithInitialDelay(0))

	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errConflict)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errConflict)
	}, WithMaxAttempts(4), WithInitialDelay(0))

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errConflict)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDo_NonRetryablePassesThrough(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errConflict
	}, WithMaxAttempts(4))

	assert.Equal(t, 1, calls)
	assert.Equal(t, errConflict, err)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errConflict)
	}, WithMaxAttempts(5), WithInitialDelay(time.Second))

	assert.Equal(t, 1, calls)
	assert.Error(t, err)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	v, err := DoWithData(context.Background(), New(WithMaxAttempts(3), WithInitialDelay(0)), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Retryable(errConflict)
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}
