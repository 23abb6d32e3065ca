package xframe

// Activate brings u into the update loop. The first activation calls Begin
// before registering; later ones register and then call OnActivate, so pooled
// entities can tell a fresh start from a reuse. It returns false, calling no
// hooks, if u was already registered.
func (s *Scheduler) Activate(u Updateable) bool {
	if u == nil || !isComparable(u) || s.Registered(u) {
		return false
	}
	s.mu.Lock()
	_, begun := s.begun[u]
	if !begun {
		s.begun[u] = struct{}{}
	}
	s.mu.Unlock()

	if !begun {
		if b, ok := u.(Beginner); ok {
			b.Begin()
		}
	}
	if !s.Register(u) {
		return false
	}
	if begun {
		if a, ok := u.(Activator); ok {
			a.OnActivate()
		}
	}
	return true
}

// Deactivate removes u from the update loop and calls OnKill. It returns false,
// without calling OnKill, if u was not registered.
func (s *Scheduler) Deactivate(u Updateable) bool {
	if !s.Deregister(u) {
		return false
	}
	if k, ok := u.(Killer); ok {
		k.OnKill()
	}
	return true
}

// Forget deactivates u and drops its begun marker. Call it when the entity is
// destroyed so the Scheduler keeps no reference to it.
func (s *Scheduler) Forget(u Updateable) {
	if u == nil || !isComparable(u) {
		return
	}
	s.Deactivate(u)
	s.mu.Lock()
	delete(s.begun, u)
	s.mu.Unlock()
}
