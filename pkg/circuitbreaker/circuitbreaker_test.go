package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("broker down")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []string
	b := New("test",
		WithFailureThreshold(2),
		WithCoolDown(time.Minute),
		WithClock(clock.Now),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		}),
	)

	ctx := context.Background()
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	clock.Advance(time.Minute)
	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", WithFailureThreshold(1), WithCoolDown(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	clock.Advance(time.Minute)
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(30 * time.Second)
	assert.ErrorIs(t, b.Execute(ctx, succeed), ErrOpen)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New("test", WithFailureThreshold(2))
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	require.NoError(t, b.Execute(ctx, succeed))
	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	err := b.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	_ = b.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Execute(context.Background(), succeed))
}
