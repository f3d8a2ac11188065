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

func fast(name string) Settings {
	return Settings{
		Name:            name,
		MaxFailures:     3,
		OpenTimeout:     time.Minute,
		Retries:         2,
		InitialInterval: time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func TestGuard_RetriesUntilSuccess(t *testing.T) {
	g := NewGuard(fast("retry"))
	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "closed", g.State())
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	s := fast("open")
	s.Retries = 0
	g := NewGuard(s)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := g.Do(context.Background(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.True(t, g.Open())

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestGuard_PermanentIsNotRetried(t *testing.T) {
	g := NewGuard(fast("permanent"))
	calls := 0
	unauthorized := errors.New("401")
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(unauthorized)
	})
	assert.ErrorIs(t, err, unauthorized)
	assert.Equal(t, 1, calls)
}

func TestGuard_CancelledContext(t *testing.T) {
	g := NewGuard(fast("cancel"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := g.Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestCall(t *testing.T) {
	g := NewGuard(fast("call"))
	n, err := Call(context.Background(), g, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Call(context.Background(), g, func(context.Context) (int, error) { return 0, Permanent(errors.New("nope")) })
	assert.EqualError(t, err, "nope")
}
