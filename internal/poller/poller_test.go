package poller

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFirstTickWaitsForInterval(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	var ticks atomic.Int32
	h := p.Start(context.Background(), 5*time.Second, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}, nil)
	defer h.Stop()

	clock.BlockUntil(1)
	require.Equal(t, int32(0), ticks.Load(), "no tick before the interval elapses")

	clock.Advance(5 * time.Second)
	clock.BlockUntil(1) // poller is waiting for the next tick
	require.Equal(t, int32(1), ticks.Load())
}

func TestStopConditionEndsPolling(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	var ticks atomic.Int32
	h := p.Start(context.Background(), time.Second, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}, func() bool {
		return ticks.Load() >= 3
	})

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after its condition held")
	}
	require.Equal(t, int32(3), ticks.Load())

	// No zombie timers: advancing well past the interval triggers nothing.
	clock.Advance(time.Minute)
	require.Equal(t, int32(3), ticks.Load())
	require.Equal(t, 0, clock.Waiters())
}

func TestStopDuringWaitPreventsTick(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	var ticks atomic.Int32
	h := p.Start(context.Background(), time.Second, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}, nil)

	clock.BlockUntil(1)
	h.Stop()
	<-h.Done()

	clock.Advance(time.Minute)
	require.Equal(t, int32(0), ticks.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	h := p.Start(context.Background(), time.Second, func(ctx context.Context) error {
		return nil
	}, nil)

	h.Stop()
	h.Stop()
	h.Stop()
	<-h.Done()

	var nilHandle *Handle
	nilHandle.Stop() // no-op, never a panic
}

func TestTicksAreSingleFlight(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	started := make(chan struct{}, 8)
	release := make(chan struct{})
	h := p.Start(context.Background(), time.Second, func(ctx context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}, nil)
	defer h.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	<-started

	// The tick is still in flight, so no new timer exists and no amount of
	// advancing can start an overlapping invocation.
	clock.Advance(10 * time.Second)
	select {
	case <-started:
		t.Fatal("overlapping tick started")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	clock.BlockUntil(1)
}

func TestTickErrorsDoNotStopPolling(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	var ticks atomic.Int32
	h := p.Start(context.Background(), time.Second, func(ctx context.Context) error {
		ticks.Add(1)
		return context.DeadlineExceeded
	}, nil)
	defer h.Stop()

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}
	clock.BlockUntil(1)
	require.Equal(t, int32(3), ticks.Load())
}

func TestContextCancelStopsPolling(t *testing.T) {
	clock := NewFakeClock()
	p := New(clock, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	h := p.Start(ctx, time.Second, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}, nil)

	clock.BlockUntil(1)
	cancel()
	<-h.Done()
	require.Equal(t, int32(0), ticks.Load())
}
