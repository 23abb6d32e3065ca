package xframe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
)

// DefaultDrainCap is the number of queued messages a Drain dispatches when
// no cap is configured.
const DefaultDrainCap = 10

// Bus is a deferred publish/subscribe dispatcher. Messages are queued by
// Publish and delivered synchronously, in FIFO order, by Drain.
//
// Listener callbacks run without any Bus lock held, so they may Attach, Detach,
// Publish or DispatchNow freely.
type Bus struct {
	mu        sync.Mutex
	listeners map[Kind][]*registration
	queue     []Message
	drainCap  int

	clock     xclock.Clock
	observers *observerSet
	journal   *JournalWriter
	codec     Codec

	metrics busMetrics
}

// registration is shared with in-flight dispatch snapshots; live flips to false
// on Detach so a snapshot never calls a detached listener.
type registration struct {
	listener Listener
	live     atomic.Bool
}

type busMetrics struct {
	published      atomic.Uint64
	dropped        atomic.Uint64
	dispatched     atomic.Uint64
	delivered      atomic.Uint64
	consumed       atomic.Uint64
	undelivered    atomic.Uint64
	listenerPanics atomic.Uint64
	dispatchNs     atomic.Int64
}

// NewBus returns a Bus that drains at most drainCap messages per Drain
// (<= 0 disables the cap).
func NewBus(drainCap int) *Bus {
	return &Bus{
		listeners: make(map[Kind][]*registration),
		drainCap:  drainCap,
		clock:     xclock.Default(),
		observers: &observerSet{},
		codec:     JSONCodec{},
	}
}

// Attach registers l for kind. It returns false for an empty kind, a nil or
// non-comparable listener, or when l is already attached to kind.
func (b *Bus) Attach(kind Kind, l Listener) bool {
	if kind == "" || l == nil || !isComparable(l) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.listeners[kind]
	for _, r := range list {
		if r.listener == l {
			return false
		}
	}
	r := &registration{listener: l}
	r.live.Store(true)
	// Full slice expression forces a copy so dispatch snapshots stay stable.
	b.listeners[kind] = append(list[:len(list):len(list)], r)
	return true
}

// Detach removes l from kind. It returns false when kind has no listeners or l
// is not attached. Safe to call from inside a listener.
func (b *Bus) Detach(kind Kind, l Listener) bool {
	if kind == "" || l == nil || !isComparable(l) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	list, ok := b.listeners[kind]
	if !ok {
		return false
	}
	for i, r := range list {
		if r.listener != l {
			continue
		}
		r.live.Store(false)
		if len(list) == 1 {
			delete(b.listeners, kind)
			return true
		}
		next := make([]*registration, 0, len(list)-1)
		next = append(next, list[:i]...)
		b.listeners[kind] = append(next, list[i+1:]...)
		return true
	}
	return false
}

// Publish queues msg for the next Drain. Messages whose kind has no listeners
// are not queued and Publish returns false.
func (b *Bus) Publish(msg Message) bool {
	if msg == nil {
		return false
	}
	kind := msg.Kind()

	b.mu.Lock()
	if len(b.listeners[kind]) == 0 {
		b.mu.Unlock()
		b.metrics.dropped.Add(1)
		b.observers.notify(Event{Type: Dropped, Kind: kind})
		return false
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	b.metrics.published.Add(1)
	b.observers.notify(Event{Type: Published, Kind: kind})
	return true
}

// Drain dispatches queued messages in FIFO order, at most DrainCap of them.
// Only messages queued before the call are considered; anything published by
// a listener during the drain waits for the next one. It returns the number of
// messages dequeued.
func (b *Bus) Drain() int {
	b.mu.Lock()
	limit := len(b.queue)
	if b.drainCap > 0 && b.drainCap < limit {
		limit = b.drainCap
	}
	b.mu.Unlock()

	n := 0
	for n < limit {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			break
		}
		msg := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.mu.Unlock()

		n++
		b.dispatch(msg)
	}
	return n
}

// DispatchNow delivers msg immediately, bypassing the queue. It returns false
// when no listener was attached for the kind.
func (b *Bus) DispatchNow(msg Message) bool {
	if msg == nil {
		return false
	}
	return b.dispatch(msg)
}

func (b *Bus) dispatch(msg Message) bool {
	kind := msg.Kind()
	b.metrics.dispatched.Add(1)

	b.mu.Lock()
	regs := b.listeners[kind]
	b.mu.Unlock()

	start := b.clock.Now()
	invoked := 0
	consumed := false
	for _, r := range regs {
		if !r.live.Load() {
			continue
		}
		invoked++
		if b.invoke(kind, r.listener, msg) {
			consumed = true
			break
		}
	}
	duration := b.clock.Since(start)

	if invoked == 0 {
		b.metrics.undelivered.Add(1)
		b.observers.notify(Event{Type: Undelivered, Kind: kind, Err: fmt.Errorf("message %q has no listeners", kind)})
		b.record(msg, false, false)
		return false
	}

	b.recordDispatchTime(duration.Nanoseconds())
	b.metrics.delivered.Add(1)
	if consumed {
		b.metrics.consumed.Add(1)
	}
	b.observers.notify(Event{Type: Delivered, Kind: kind, Count: invoked, Duration: duration})
	b.record(msg, true, consumed)
	return true
}

// invoke runs one listener; a panic counts as not consumed.
func (b *Bus) invoke(kind Kind, l Listener, msg Message) (consumed bool) {
	defer func() {
		if r := recover(); r != nil {
			consumed = false
			b.metrics.listenerPanics.Add(1)
			b.observers.notify(Event{
				Type:    ListenerPanic,
				Kind:    kind,
				Subject: describe(l),
				Err:     fmt.Errorf("panic recovered: %v", r),
			})
		}
	}()
	return l.OnMessage(msg)
}

func (b *Bus) record(msg Message, delivered, consumed bool) {
	if b.journal == nil {
		return
	}
	rec, err := NewRecord(b.codec, msg, b.clock.Now())
	if err != nil {
		b.observers.notify(Event{Type: JournalError, Kind: msg.Kind(), Err: err})
		return
	}
	rec.Delivered = delivered
	rec.Consumed = consumed
	b.journal.Enqueue(rec)
}

// Pending returns the number of queued messages.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Listeners returns the number of listeners attached to kind.
func (b *Bus) Listeners(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[kind])
}

// DrainCap returns the per-Drain cap (<= 0 means unbounded).
func (b *Bus) DrainCap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainCap
}

// SetDrainCap changes the per-Drain cap (<= 0 means unbounded).
func (b *Bus) SetDrainCap(n int) {
	b.mu.Lock()
	b.drainCap = n
	b.mu.Unlock()
}

// Clear drops every queued message. Listeners stay attached.
func (b *Bus) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.queue)
	b.queue = nil
	return n
}

// AddObserver registers an observer for bus notices.
func (b *Bus) AddObserver(obs Observer) { b.observers.add(obs) }

// RemoveObserver removes an observer.
func (b *Bus) RemoveObserver(obs Observer) { b.observers.remove(obs) }

// Metrics returns a snapshot of bus telemetry.
func (b *Bus) Metrics() BusMetrics {
	b.mu.Lock()
	pending := len(b.queue)
	kinds := len(b.listeners)
	b.mu.Unlock()

	return BusMetrics{
		Published:         b.metrics.published.Load(),
		Dropped:           b.metrics.dropped.Load(),
		Dispatched:        b.metrics.dispatched.Load(),
		Delivered:         b.metrics.delivered.Load(),
		Consumed:          b.metrics.consumed.Load(),
		Undelivered:       b.metrics.undelivered.Load(),
		ListenerPanics:    b.metrics.listenerPanics.Load(),
		Pending:           pending,
		Kinds:             kinds,
		AvgDispatchTimeMs: float64(b.metrics.dispatchNs.Load()) / float64(time.Millisecond),
	}
}

// recordDispatchTime keeps an exponential moving average of dispatch time.
func (b *Bus) recordDispatchTime(ns int64) {
	const alpha = 0.2
	current := b.metrics.dispatchNs.Load()
	if current == 0 {
		b.metrics.dispatchNs.Store(ns)
		return
	}
	b.metrics.dispatchNs.Store(int64(float64(ns)*alpha + float64(current)*(1-alpha)))
}
