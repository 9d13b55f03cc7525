package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("renderer down")

func failing(context.Context) error { return errDown }
func healthy(context.Context) error { return nil }

type transition struct{ from, to State }

func newTestBreaker(t *testing.T, opts ...Option) (*CircuitBreaker, *time.Time, *[]transition) {
	t.Helper()
	var changes []transition
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	opts = append(opts, WithOnStateChange(func(_ string, from, to State) {
		changes = append(changes, transition{from, to})
	}))
	cb := New("test", opts...)
	cb.now = func() time.Time { return now }
	return cb, &now, &changes
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _, changes := newTestBreaker(t, WithFailureThreshold(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errDown)
	}
	assert.True(t, cb.IsOpen())
	assert.ErrorIs(t, cb.Execute(ctx, healthy), ErrCircuitOpen)
	assert.Equal(t, []transition{{StateClosed, StateOpen}}, *changes)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now, changes := newTestBreaker(t, WithFailureThreshold(1), WithSuccessThreshold(2), WithTimeout(time.Minute))
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, failing), errDown)
	require.True(t, cb.IsOpen())

	*now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, healthy))
	assert.Equal(t, StateHalfOpen, cb.State())

	// One probe at a time.
	require.NoError(t, cb.Execute(ctx, healthy))
	assert.True(t, cb.IsClosed())
	assert.Equal(t, []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, *changes)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now, _ := newTestBreaker(t, WithFailureThreshold(1), WithTimeout(time.Minute))
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, failing), errDown)
	*now = now.Add(time.Minute)

	require.ErrorIs(t, cb.Execute(ctx, failing), errDown)
	assert.True(t, cb.IsOpen())
}

func TestBreaker_IsFailureFiltersErrors(t *testing.T) {
	errBadRequest := errors.New("bad request")
	cb, _, _ := newTestBreaker(t,
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, errBadRequest) }),
	)

	err := cb.Execute(context.Background(), func(context.Context) error { return errBadRequest })
	assert.ErrorIs(t, err, errBadRequest)
	assert.True(t, cb.IsClosed())
	assert.Equal(t, 1, cb.Counts().TotalSuccesses)
}

func TestBreaker_ExecuteWithFallback(t *testing.T) {
	cb, _, _ := newTestBreaker(t, WithFailureThreshold(1))
	ctx := context.Background()
	_ = cb.Execute(ctx, failing)

	fallbackErr := errors.New("fallback")
	err := cb.ExecuteWithFallback(ctx, healthy, func(err error) error {
		assert.ErrorIs(t, err, ErrCircuitOpen)
		return fallbackErr
	})
	assert.Equal(t, fallbackErr, err)

	cb.Reset()
	assert.True(t, cb.IsClosed())
	assert.Zero(t, cb.Counts().Requests)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
