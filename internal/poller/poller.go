// Package poller provides the repeating-task primitive behind the dashboard's
// polling concerns: fixed interval, one in-flight tick per handle, and a stop
// condition checked after every tick.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickFunc is one poll iteration. Errors are logged and swallowed; a failed
// tick never terminates the poller.
type TickFunc func(ctx context.Context) error

// StopFunc is evaluated after each tick; returning true self-cancels the
// handle.
type StopFunc func() bool

type Poller struct {
	clock Clock
	log   *slog.Logger
}

func New(clock Clock, log *slog.Logger) *Poller {
	if clock == nil {
		clock = SystemClock()
	}
	return &Poller{clock: clock, log: log}
}

// Handle is a cancellable repeating task. Stop is idempotent and safe to call
// from within the task's own tick.
type Handle struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Stop cancels the handle. An in-flight tick is allowed to finish but nothing
// further is scheduled. Stopping an already-stopped handle is a no-op.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stop) })
}

// Done is closed once the polling loop has fully exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) stopped() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

// Start launches a repeating task. The first tick runs only after interval
// elapses; the caller is expected to have rendered initial state already.
// Ticks are single-flight: the next wait begins only after the previous tick
// returns.
func (p *Poller) Start(ctx context.Context, interval time.Duration, tick TickFunc, stop StopFunc) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case <-p.clock.After(interval):
			}

			// A Stop racing the timer must win: no tick after cancellation.
			if h.stopped() || ctx.Err() != nil {
				return
			}

			if err := tick(ctx); err != nil {
				if p.log != nil {
					p.log.Warn("poll tick failed", "err", err)
				}
			}

			if stop != nil && stop() {
				h.Stop()
				return
			}
		}
	}()

	return h
}
