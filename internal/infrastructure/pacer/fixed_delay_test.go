package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedDelayFirstCallDoesNotWait(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	p := New(fc, 2*time.Second)

	require.NoError(t, p.Wait(context.Background()))
}

func TestFixedDelaySpacesCalls(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc := clockwork.NewFakeClock()
	p := New(fc, 2*time.Second)
	require.NoError(t, p.Wait(ctx))

	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)
	select {
	case <-done:
		t.Fatal("released before the delay elapsed")
	default:
	}

	fc.Advance(time.Second)
	require.NoError(t, <-done)
}

func TestFixedDelaySkipsWaitWhenDelayAlreadyElapsed(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	p := New(fc, 2*time.Second)
	require.NoError(t, p.Wait(context.Background()))

	fc.Advance(3 * time.Second)
	require.NoError(t, p.Wait(context.Background()))
}

func TestFixedDelayCountsFromEndOfDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc := clockwork.NewFakeClock()
	p := New(fc, 2*time.Second)
	require.NoError(t, p.Wait(ctx))

	// the dispatch itself outlasts the delay
	fc.Advance(5 * time.Second)
	p.Done()

	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)
	select {
	case <-done:
		t.Fatal("released before the gap after the previous dispatch elapsed")
	default:
	}

	fc.Advance(time.Second)
	require.NoError(t, <-done)
}

func TestFixedDelayHonoursCancellation(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	p := New(fc, time.Minute)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()

	require.NoError(t, fc.BlockUntilContext(context.Background(), 1))
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	assert.ErrorIs(t, p.Wait(cancelled), context.Canceled)
}
