package xframe

import (
	"sync"
	"time"
)

type ping struct {
	N int `json:"n" yaml:"n"`
}

func (ping) Kind() Kind { return "Ping" }

// recorder is an Observer that keeps every notice.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) last(t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// counter is an Updateable counting its Thinks.
type counter struct {
	thinks int
	dts    []time.Duration
}

func (c *counter) Think(dt time.Duration) {
	c.thinks++
	c.dts = append(c.dts, dt)
}

// thinkFunc adapts a func to Updateable; use a pointer so it is comparable.
type thinkFunc struct{ fn func(dt time.Duration) }

func (t *thinkFunc) Think(dt time.Duration) { t.fn(dt) }
