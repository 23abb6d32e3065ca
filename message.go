package xframe

// Kind is the routing discriminant of a Message.
type Kind string

// Message is an immutable tagged record routed by its Kind.
// Payload fields live on the concrete type.
type Message interface {
	Kind() Kind
}

// Signal is a payload-less Message; its value is its Kind.
type Signal Kind

func (s Signal) Kind() Kind { return Kind(s) }

// KindPauseChanged is published by World.SetPaused when the pause state flips.
const KindPauseChanged Kind = "PauseChanged"

// PauseChanged reports a scheduler pause toggle.
type PauseChanged struct {
	Paused bool `json:"paused" yaml:"paused"`
}

func (PauseChanged) Kind() Kind { return KindPauseChanged }

// Handle wraps fn into a comparable Listener. Keep the returned value to Detach later.
func Handle(fn func(msg Message) bool) Listener {
	return &funcListener{fn: fn}
}

// On wraps a typed handler. Messages of another concrete type are ignored
// and never consumed.
func On[T Message](fn func(msg T) bool) Listener {
	return &funcListener{fn: func(msg Message) bool {
		v, ok := msg.(T)
		if !ok {
			return false
		}
		return fn(v)
	}}
}

type funcListener struct {
	fn func(msg Message) bool
}

func (l *funcListener) OnMessage(msg Message) bool {
	if l.fn == nil {
		return false
	}
	return l.fn(msg)
}
