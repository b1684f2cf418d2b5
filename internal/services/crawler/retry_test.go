package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRetryPolicy_RateLimitedThenSuccess(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond, time.Millisecond)

	attempts := 0
	err := policy.Execute(context.Background(), arbor.NewLogger(), func() error {
		attempts++
		if attempts < 3 {
			return ErrTooManyRequests
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_ProcessingThenSuccess(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond, time.Millisecond)

	attempts := 0
	err := policy.Execute(context.Background(), arbor.NewLogger(), func() error {
		attempts++
		if attempts == 1 {
			return ErrProcessing
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryPolicy_NonRetryableAbandonsImmediately(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond, time.Millisecond)

	attempts := 0
	boom := errors.New("connection refused")
	err := policy.Execute(context.Background(), arbor.NewLogger(), func() error {
		attempts++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_ExhaustedAttempts(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond, time.Millisecond)

	attempts := 0
	err := policy.Execute(context.Background(), arbor.NewLogger(), func() error {
		attempts++
		return ErrTooManyRequests
	})

	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.Equal(t, 2, attempts)
}

func TestRetryPolicy_ContextCancelled(t *testing.T) {
	policy := NewRetryPolicy(3, time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Execute(ctx, arbor.NewLogger(), func() error {
		return ErrTooManyRequests
	})

	assert.ErrorIs(t, err, context.Canceled)
}
