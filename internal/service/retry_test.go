package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryPolicy(attempts uint64) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := fastRetryPolicy(3).Do(ctx, func() error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failures until success", func(t *testing.T) {
		calls := 0
		err := fastRetryPolicy(3).Do(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := fastRetryPolicy(3).Do(ctx, func() error {
			calls++
			return errors.New("always failing")
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops immediately on permanent errors", func(t *testing.T) {
		calls := 0
		permanent := errors.New("bad request")
		err := fastRetryPolicy(3).Do(ctx, func() error {
			calls++
			return backoff.Permanent(permanent)
		})

		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		calls := 0
		err := fastRetryPolicy(10).Do(cancelCtx, func() error {
			calls++
			cancel()
			return errors.New("transient")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero max attempts still runs once", func(t *testing.T) {
		calls := 0
		err := fastRetryPolicy(0).Do(ctx, func() error {
			calls++
			return errors.New("failing")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
