package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func fast(opts ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond)}, opts...)
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errTransient)
		}
		return nil
	}, fast(WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsUnwrappedErrorAfterLastAttempt(t *testing.T) {
	var retries []int
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errTransient)
	}, fast(WithMaxAttempts(3), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	}))...)

	assert.Equal(t, errTransient, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_StopsOnPermanentAndPlainErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errTransient)
	}, fast()...)
	assert.Equal(t, errTransient, err)
	assert.Equal(t, 1, calls)

	calls = 0
	plain := errors.New("plain")
	err = Do(context.Background(), func(context.Context) error {
		calls++
		return plain
	}, fast()...)
	assert.Equal(t, plain, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfOverridesDefault(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	}, fast(WithMaxAttempts(4), WithRetryIf(func(err error) bool { return errors.Is(err, errTransient) }))...)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls)
}

func TestDo_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Retryable(errTransient)
		}
		return "documents/1.pdf", nil
	}, fast()...)

	assert.NoError(t, err)
	assert.Equal(t, "documents/1.pdf", got)
}

func TestCalculateDelay_CappedAndNonNegative(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(4*time.Second), WithJitter(0))

	assert.Equal(t, time.Second, r.calculateDelay(1))
	assert.Equal(t, 2*time.Second, r.calculateDelay(2))
	assert.Equal(t, 4*time.Second, r.calculateDelay(5))
}
