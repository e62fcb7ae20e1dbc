package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastRetry(3), "svc", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastRetry(3), "svc", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("bad gateway"), 502)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("invalid credentials")
	_, err := Do(context.Background(), fastRetry(3), "svc", func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoNeverRetriesRateLimits(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastRetry(5), "svc", func(context.Context) (int, error) {
		calls++
		return 0, NewRateLimitError("svc", time.Minute)
	})
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := NewTransientError(errors.New("timeout"), 504)
	_, err := Do(context.Background(), fastRetry(3), "svc", func(context.Context) (int, error) {
		calls++
		return 0, transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastRetry(5), "svc", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("timeout"), 504)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoCustomShouldRetry(t *testing.T) {
	cfg := fastRetry(3)
	marker := errors.New("retry me")
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, marker) }

	calls := 0
	_, err := Do(context.Background(), cfg, "svc", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, marker
		}
		return 0, errors.New("stop")
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, 2, calls)
}

func TestComputeBackoffIsCapped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 10})
	assert.LessOrEqual(t, computeBackoff(5, cfg), cfg.MaxBackoff)
}
