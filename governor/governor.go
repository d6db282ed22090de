// Package governor bounds how much browser work one process (and optionally
// a fleet of processes) may do at once: a local counting semaphore for page
// leases, a per-task watchdog that forcibly tears down stuck tasks, and a
// file-backed cross-process slot limiter.
package governor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Governor bounds the number of simultaneously open page leases per process.
// It is safe for concurrent use.
type Governor struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int32
}

// New creates a Governor with the given local page capacity.
// Capacities below 1 are clamped to 1.
func New(capacity int) *Governor {
	if capacity < 1 {
		capacity = 1
	}
	return &Governor{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a lease slot is free or ctx is done.
func (g *Governor) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

// Release returns a lease slot. Must be called exactly once per
// successful Acquire.
func (g *Governor) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Capacity returns the configured local capacity.
func (g *Governor) Capacity() int { return g.capacity }

// InFlight returns the number of currently held slots.
func (g *Governor) InFlight() int { return int(g.inFlight.Load()) }

// Watchdog is a hard per-task deadline. It is not a cooperative check: on
// expiry it invokes the teardown callback from its own goroutine, forcibly
// closing whatever the task owns, and records that it fired so the task can
// be reported as a timeout rather than a crash.
type Watchdog struct {
	timer *time.Timer
	fired atomic.Bool
	done  chan struct{}
	once  sync.Once
}

// NewWatchdog arms a watchdog that calls teardown after d elapses.
// Stop it on every normal exit path.
func NewWatchdog(d time.Duration, teardown func()) *Watchdog {
	w := &Watchdog{done: make(chan struct{})}
	w.timer = time.AfterFunc(d, func() {
		w.fired.Store(true)
		teardown()
		w.once.Do(func() { close(w.done) })
	})
	return w
}

// Stop disarms the watchdog. It reports false when the watchdog already
// fired, in which case teardown has run (or is running).
func (w *Watchdog) Stop() bool {
	stopped := w.timer.Stop()
	w.once.Do(func() { close(w.done) })
	return stopped && !w.fired.Load()
}

// Fired reports whether the deadline expired and teardown was invoked.
func (w *Watchdog) Fired() bool { return w.fired.Load() }

// Done is closed once the watchdog has either fired (after teardown
// returned) or been stopped.
func (w *Watchdog) Done() <-chan struct{} { return w.done }
