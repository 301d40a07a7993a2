package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConflict = errors.New("conflict")

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: RetryOn(errConflict),
	}
}

func TestRetry_SucceedsAfterRetryableFailures(t *testing.T) {
	var retries []int
	cfg := fastRetry()
	cfg.OnRetry = func(attempt int, err error) {
		retries = append(retries, attempt)
		assert.ErrorIs(t, err, errConflict)
	}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{2, 3}, retries)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return boom
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustedKeepsCause(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return errConflict
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 3, calls)
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetry(), func() error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult(t *testing.T) {
	calls := 0
	v, err := RetryWithResult(context.Background(), fastRetry(), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errConflict
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCircuitBreaker_TripsAndRejects(t *testing.T) {
	var states []int
	cfg := DefaultCircuitBreakerConfig("invoice-api")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	cfg.OnStateChange = func(_ string, state int) { states = append(states, state) }
	cb := NewCircuitBreaker(cfg, nil)

	fail := func() (interface{}, error) { return nil, errors.New("down") }
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(context.Background(), fail)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []int{int(gobreaker.StateOpen)}, states)

	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		t.Fatal("open breaker must not call through")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "open", cb.Status().State)
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	clientErr := errors.New("validation")
	cfg := DefaultCircuitBreakerConfig("invoice-api")
	cfg.FailureThreshold = 1
	cfg.IsFailure = func(err error) bool { return !errors.Is(err, clientErr) }
	cb := NewCircuitBreaker(cfg, nil)

	_, err := cb.Execute(context.Background(), func() (interface{}, error) { return nil, clientErr })
	assert.ErrorIs(t, err, clientErr)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
