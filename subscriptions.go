package xframe

import "sync"

// Subscriptions records the listeners one owner attached so its teardown can
// detach all of them in a single call. A detached listener can never observe
// an owner that is already gone.
type Subscriptions struct {
	bus *Bus

	mu   sync.Mutex
	list []subscription
}

type subscription struct {
	kind     Kind
	listener Listener
}

// Subscriptions returns an empty set bound to b.
func (b *Bus) Subscriptions() *Subscriptions {
	return &Subscriptions{bus: b}
}

// Attach attaches l to kind and records it. It returns Bus.Attach's result;
// rejected listeners are not recorded.
func (s *Subscriptions) Attach(kind Kind, l Listener) bool {
	if !s.bus.Attach(kind, l) {
		return false
	}
	s.mu.Lock()
	s.list = append(s.list, subscription{kind: kind, listener: l})
	s.mu.Unlock()
	return true
}

// Len returns the number of recorded listeners.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

// Close detaches every recorded listener and returns how many were still
// attached. The set is empty afterwards and may be reused.
func (s *Subscriptions) Close() int {
	s.mu.Lock()
	list := s.list
	s.list = nil
	s.mu.Unlock()

	n := 0
	for _, sub := range list {
		if s.bus.Detach(sub.kind, sub.listener) {
			n++
		}
	}
	return n
}
