package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:       maxRetries,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		Multiplier:       2,
		MaxSameErrorType: 5,
	}
}

type declaredError struct {
	retryable bool
}

func (e declaredError) Error() string     { return "declared" }
func (e declaredError) IsRetryable() bool { return e.retryable }

func TestDo_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(2), func() error {
		attempts++
		return fmt.Errorf("attempt %d", attempts)
	})

	require.EqualError(t, err, "attempt 3")
	assert.Equal(t, 3, attempts)
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	v, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestDoIfRetryable_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := DoIfRetryable(context.Background(), fastConfig(5), func() error {
		attempts++
		return errors.New("syntax error near SELECT")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoIfRetryable_RespectsDeclaredRetryability(t *testing.T) {
	attempts := 0
	err := DoIfRetryable(context.Background(), fastConfig(5), func() error {
		attempts++
		return fmt.Errorf("wrapped: %w", declaredError{retryable: false})
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	attempts = 0
	_ = DoIfRetryable(context.Background(), fastConfig(2), func() error {
		attempts++
		return declaredError{retryable: true}
	})
	assert.Equal(t, 3, attempts)
}

func TestDoIfRetryable_EscalatesRepeatedSameType(t *testing.T) {
	cfg := fastConfig(10)
	cfg.MaxSameErrorType = 3

	attempts := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		attempts++
		return errors.New("HTTP 503 service unavailable")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated error (3 times, type=503)")
	assert.Equal(t, 3, attempts)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Second

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		cancel()
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_CallsOnRetry(t *testing.T) {
	var seen []int
	cfg := fastConfig(2)
	cfg.OnRetry = func(attempt int, err error) {
		seen = append(seen, attempt)
	}

	_ = Do(context.Background(), cfg, func() error { return errors.New("x") })
	assert.Equal(t, []int{1, 2}, seen)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("Transaction (Process ID 52) was deadlocked on lock resources and has been chosen as the deadlock victim"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("Invalid column name 'Foo'"), false},
		{declaredError{retryable: true}, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryable(tt.err), fmt.Sprintf("%v", tt.err))
	}
}

func TestApplyJitter_StaysInBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := applyJitter(100*time.Millisecond, 0.1)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
	assert.Equal(t, time.Second, applyJitter(time.Second, 0))
}
