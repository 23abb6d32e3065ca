package xframe

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

const (
	defaultCloseTimeout = 5 * time.Second
	// minCloseTimeout still lets an expired ctx flush what is buffered.
	minCloseTimeout     = 100 * time.Millisecond
)

// World ties the messaging bus, the update scheduler and the prefab pools
// together and drives them once per frame. Build one with NewWorldBuilder or
// New; there is no process-wide instance.
type World struct {
	Bus       *Bus
	Scheduler *Scheduler
	Pools     *Pools

	clock     xclock.Clock
	logger    *xlog.Logger
	observers *observerSet
	journal   *JournalWriter

	cfgMu sync.Mutex
	cfg   Config

	frames    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Frame advances the world by dt: one scheduler tick, then one bus drain.
// It returns the number of messages delivered. A closed world does nothing.
func (w *World) Frame(dt time.Duration) int {
	if w.closed.Load() {
		return 0
	}
	start := w.clock.Now()
	w.Scheduler.Tick(dt)
	n := w.Bus.Drain()
	w.frames.Add(1)
	w.observers.notify(Event{Type: FrameDone, Count: n, Duration: w.clock.Since(start)})
	return n
}

// Frames returns the number of frames run so far.
func (w *World) Frames() uint64 { return w.frames.Load() }

// SetPaused pauses or resumes the scheduler. On an actual change a
// PauseChanged message is queued for the next drain. It returns whether the
// state changed.
func (w *World) SetPaused(paused bool) bool {
	var changed bool
	if paused {
		changed = w.Scheduler.Pause()
	} else {
		changed = w.Scheduler.Resume()
	}
	if changed {
		w.Bus.Publish(PauseChanged{Paused: paused})
	}
	return changed
}

// Paused reports whether the scheduler is paused.
func (w *World) Paused() bool { return w.Scheduler.Paused() }

// ApplyConfig retunes drain cap, update interval and fail-fast at runtime.
// Journal settings only take effect at build time.
func (w *World) ApplyConfig(cfg Config) error {
	if w.closed.Load() {
		return ErrWorldClosed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	w.cfgMu.Lock()
	defer w.cfgMu.Unlock()

	w.Bus.SetDrainCap(cfg.DrainCap)
	if cfg.UpdateInterval != w.Scheduler.Interval() {
		w.Scheduler.SetInterval(cfg.UpdateInterval)
	}
	if cfg.FailFast != w.cfg.FailFast {
		w.Scheduler.SetFailFast(cfg.FailFast)
	}
	w.cfg.DrainCap = cfg.DrainCap
	w.cfg.UpdateInterval = cfg.UpdateInterval
	w.cfg.FailFast = cfg.FailFast

	w.observers.notify(Event{Type: ConfigApplied})
	return nil
}

// Config returns the configuration currently in effect.
func (w *World) Config() Config {
	w.cfgMu.Lock()
	defer w.cfgMu.Unlock()
	return w.cfg
}

// Reset tears a level down: every pool is emptied and queued messages are
// discarded. Listeners and registered entities stay.
func (w *World) Reset() {
	w.Pools.Reset()
	if n := w.Bus.Clear(); n > 0 {
		w.logger.Debug().Str("discarded", strconv.Itoa(n)).Msg("xframe reset")
	}
}

// Journal returns the journal writer, or ErrNoJournal when none was built.
func (w *World) Journal() (*JournalWriter, error) {
	if w.journal == nil {
		return nil, ErrNoJournal
	}
	return w.journal, nil
}

// Logger returns the world's logger.
func (w *World) Logger() *xlog.Logger { return w.logger }

// AddObserver registers an observer for notices from every component.
func (w *World) AddObserver(obs Observer) { w.observers.add(obs) }

// RemoveObserver removes an observer.
func (w *World) RemoveObserver(obs Observer) { w.observers.remove(obs) }

// Close stops frames and flushes the journal, bounded by ctx's deadline.
// It is idempotent.
func (w *World) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		if w.journal == nil {
			return
		}
		timeout := defaultCloseTimeout
		if dl, ok := ctx.Deadline(); ok {
			timeout = max(time.Until(dl), minCloseTimeout)
		}
		w.closeErr = w.journal.Close(timeout)
		if w.closeErr != nil {
			w.logger.Warn().Err(w.closeErr).Msg("xframe journal close failed")
		}
	})
	return w.closeErr
}

// Closed reports whether Close has been called.
func (w *World) Closed() bool { return w.closed.Load() }

// Health reports world health. A world is degraded when undelivered
// dispatches plus think and listener failures exceed 5% of traffic, and unhealthy once closed.
func (w *World) Health() HealthStatus {
	bus := w.Bus.Metrics()
	sched := w.Scheduler.Metrics()
	h := HealthStatus{
		Status:    "healthy",
		Bus:       bus,
		Scheduler: sched,
		Pools:     w.Pools.Metrics(),
		Timestamp: w.clock.Now(),
	}
	if w.journal != nil {
		h.Journal = w.journal.Stats()
	}

	if w.closed.Load() {
		h.Status = "unhealthy"
		h.Message = "world is closed"
		return h
	}

	traffic := bus.Dispatched + sched.Thinks
	faults := bus.Undelivered + bus.ListenerPanics + sched.ThinkPanics + sched.ThinkErrors
	if traffic > 0 && float64(faults)/float64(traffic) > 0.05 {
		h.Status = "degraded"
		h.Message = "high undelivered or panic rate"
		return h
	}
	if h.Journal.Dropped > 0 {
		h.Status = "degraded"
		h.Message = "journal dropping records"
	}
	return h
}
