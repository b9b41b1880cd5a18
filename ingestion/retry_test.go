package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/core"
)

func TestDefaultBackoff(t *testing.T) {
	assert.Equal(t, time.Second, DefaultBackoff(0, 0))
	assert.Equal(t, 2*time.Second, DefaultBackoff(1, 0))
	assert.Equal(t, 4*time.Second+300*time.Millisecond, DefaultBackoff(2, 3))
	assert.Equal(t, time.Second, DefaultBackoff(0, 5), "jitter wraps every five batches")
	assert.Equal(t, time.Second+400*time.Millisecond, DefaultBackoff(0, 9))
}

func oneMillisecond(int) time.Duration { return time.Millisecond }

func TestRetryRateLimited_Success(t *testing.T) {
	attempts := 0
	err := retryRateLimited(context.Background(), func(context.Context) error {
		attempts++
		return nil
	}, 3, oneMillisecond, Sleep, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryRateLimited_EventualSuccess(t *testing.T) {
	attempts := 0
	err := retryRateLimited(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return core.ErrRateLimited
		}
		return nil
	}, 3, oneMillisecond, Sleep, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryRateLimited_NonRetryable(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("bad request")
	err := retryRateLimited(context.Background(), func(context.Context) error {
		attempts++
		return expectedErr
	}, 3, oneMillisecond, Sleep, slog.Default())
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryRateLimited_InvalidMaxAttempts(t *testing.T) {
	err := retryRateLimited(context.Background(), func(context.Context) error { return nil }, 0, oneMillisecond, Sleep, slog.Default())
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryRateLimited_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retryRateLimited(ctx, func(context.Context) error {
		attempts++
		cancel()
		return core.ErrRateLimited
	}, 5, func(int) time.Duration { return time.Hour }, Sleep, slog.Default())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
