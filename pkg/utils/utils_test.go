package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	want := errors.New("persistent")
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpOnPermanentError(t *testing.T) {
	want := errors.New("no such file")
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return Permanent(want)
	})
	assert.ErrorIs(t, err, want)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsShouldRetryPredicate(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastRetryConfig()
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 2, calls)
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	inner := errors.New("bad row")
	wrapped := Permanent(inner)
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, inner.Error(), wrapped.Error())
	assert.True(t, IsPermanent(wrapped))
	assert.False(t, IsPermanent(inner))
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetryConfig(), func() error {
		calls++
		return errors.New("keep going")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithResult(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		return "", errors.New("always")
	})
	assert.Error(t, err)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Minute, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Minute, 2))
	assert.Equal(t, time.Second, CalculateBackoff(10, 100*time.Millisecond, time.Second, 2))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "$999.50", FormatCurrency(999.5))
	assert.Equal(t, "$1,234.56", FormatCurrency(1234.56))
	assert.Equal(t, "$1,234,567.89", FormatCurrency(1234567.891))
	assert.Equal(t, "-$1,000.00", FormatCurrency(-1000))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+12.34%", FormatPercent(0.1234))
	assert.Equal(t, "-5.00%", FormatPercent(-0.05))
	assert.Equal(t, "0.00%", FormatPercent(0))
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "1.235", FormatRatio(1.23456))
	assert.Equal(t, "-0.500", FormatRatio(-0.5))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "166", FormatQuantity(166))
	assert.Equal(t, "12,500", FormatQuantity(12500))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second))
	assert.Equal(t, "2h05m", FormatDuration(125*time.Minute))
}
