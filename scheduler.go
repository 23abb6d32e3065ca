package xframe

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
)

// Scheduler is the central update loop. Every registered Updateable gets one
// Think per update pass, in registration order. Passes can be throttled with an
// interval; entities always receive the real frame delta.
type Scheduler struct {
	mu       sync.Mutex
	entries  []Updateable // copy-on-write; passes iterate a snapshot
	index    map[Updateable]struct{}
	begun    map[Updateable]struct{}
	interval time.Duration
	timer    time.Duration
	paused   bool
	failFast bool

	middlewares []Middleware
	think       ThinkFunc

	clock     xclock.Clock
	observers *observerSet
	metrics   schedulerMetrics
}

type schedulerMetrics struct {
	ticks       atomic.Uint64
	passes      atomic.Uint64
	thinks      atomic.Uint64
	thinkPanics atomic.Uint64
	thinkErrors atomic.Uint64
	slowThinks  atomic.Uint64
	lastPassNs  atomic.Int64
}

// NewScheduler returns a Scheduler that runs a pass once more than interval has
// accumulated (<= 0 runs every tick).
func NewScheduler(interval time.Duration) *Scheduler {
	s := &Scheduler{
		index:     make(map[Updateable]struct{}),
		begun:     make(map[Updateable]struct{}),
		interval:  interval,
		clock:     xclock.Default(),
		observers: &observerSet{},
	}
	s.rebuild()
	return s
}

// Register adds u to the active set. It returns false if u is nil,
// not comparable, or already registered.
func (s *Scheduler) Register(u Updateable) bool {
	if u == nil || !isComparable(u) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[u]; ok {
		return false
	}
	s.index[u] = struct{}{}
	s.entries = append(s.entries[:len(s.entries):len(s.entries)], u)
	return true
}

// Deregister removes u from the active set. It returns false if u was not
// registered. Takes effect for the rest of an in-flight pass.
func (s *Scheduler) Deregister(u Updateable) bool {
	if u == nil || !isComparable(u) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[u]; !ok {
		return false
	}
	delete(s.index, u)
	next := make([]Updateable, 0, len(s.entries)-1)
	for _, e := range s.entries {
		if e != u {
			next = append(next, e)
		}
	}
	s.entries = next
	return true
}

// Registered reports whether u is in the active set.
func (s *Scheduler) Registered(u Updateable) bool {
	if u == nil || !isComparable(u) {
		return false
	}
	s.mu.Lock()
	_, ok := s.index[u]
	s.mu.Unlock()
	return ok
}

// Len returns the number of registered entities.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Tick advances the accumulator by dt and, when more than the interval has
// accumulated, runs one update pass. It returns whether a pass ran.
func (s *Scheduler) Tick(dt time.Duration) bool {
	s.metrics.ticks.Add(1)
	if dt < 0 {
		dt = 0
	}

	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return false
	}
	s.timer += dt
	if s.interval > 0 {
		if s.timer <= s.interval {
			s.mu.Unlock()
			return false
		}
		// The remainder carries, so ticks after a long frame catch up one
		// pass at a time.
		s.timer -= s.interval
	} else {
		s.timer = 0
	}
	entries := s.entries
	think := s.think
	s.mu.Unlock()

	start := s.clock.Now()
	count := 0
	for _, u := range entries {
		if !s.Registered(u) {
			continue
		}
		count++
		s.metrics.thinks.Add(1)
		if err := think(u, dt); err != nil {
			if errors.Is(err, ErrThinkPanic) {
				s.metrics.thinkPanics.Add(1)
				s.observers.notify(Event{Type: ThinkPanic, Subject: describe(u), Err: err})
			} else {
				s.metrics.thinkErrors.Add(1)
				s.observers.notify(Event{Type: Error, Subject: describe(u), Err: err})
			}
		}
	}
	took := s.clock.Since(start)

	s.metrics.passes.Add(1)
	s.metrics.lastPassNs.Store(took.Nanoseconds())
	s.observers.notify(Event{Type: TickDone, Count: count, Duration: took})
	return true
}

// Pause stops update passes until Resume. It returns false if already paused.
func (s *Scheduler) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return false
	}
	s.paused = true
	return true
}

// Resume restarts update passes with an empty accumulator. It returns false if
// not paused.
func (s *Scheduler) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return false
	}
	s.paused = false
	s.timer = 0
	return true
}

// Paused reports whether update passes are suspended.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Interval returns the update pass interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the update pass interval (<= 0 runs every tick).
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	s.interval = d
	s.timer = 0
	s.mu.Unlock()
}

// SetFailFast controls panic isolation. With failFast a panicking Think aborts
// the pass and propagates to the caller of Tick.
func (s *Scheduler) SetFailFast(failFast bool) {
	s.mu.Lock()
	s.failFast = failFast
	s.rebuildLocked()
	s.mu.Unlock()
}

// Use appends middlewares around every Think.
func (s *Scheduler) Use(mws ...Middleware) {
	s.mu.Lock()
	s.middlewares = append(s.middlewares, mws...)
	s.rebuildLocked()
	s.mu.Unlock()
}

// AddObserver registers an observer for scheduler notices.
func (s *Scheduler) AddObserver(obs Observer) { s.observers.add(obs) }

// RemoveObserver removes an observer.
func (s *Scheduler) RemoveObserver(obs Observer) { s.observers.remove(obs) }

// Metrics returns a snapshot of scheduler telemetry.
func (s *Scheduler) Metrics() SchedulerMetrics {
	s.mu.Lock()
	registered := len(s.entries)
	paused := s.paused
	interval := s.interval
	s.mu.Unlock()

	return SchedulerMetrics{
		Ticks:       s.metrics.ticks.Load(),
		Passes:      s.metrics.passes.Load(),
		Thinks:      s.metrics.thinks.Load(),
		ThinkPanics: s.metrics.thinkPanics.Load(),
		ThinkErrors: s.metrics.thinkErrors.Load(),
		SlowThinks:  s.metrics.slowThinks.Load(),
		Registered:  registered,
		Paused:      paused,
		Interval:    interval,
		LastPass:    time.Duration(s.metrics.lastPassNs.Load()),
	}
}

func (s *Scheduler) reportSlow(u Updateable, took time.Duration) {
	s.metrics.slowThinks.Add(1)
	s.observers.notify(Event{Type: SlowThink, Subject: describe(u), Duration: took})
}

func (s *Scheduler) rebuild() {
	s.mu.Lock()
	s.rebuildLocked()
	s.mu.Unlock()
}

func (s *Scheduler) rebuildLocked() {
	base := ThinkFunc(callThink)
	if !s.failFast {
		base = RecoveryMiddleware()(base)
	}
	s.think = Chain(base, s.middlewares...)
}
