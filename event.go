package xframe

import (
	"time"
)

// EventType enumerates lifecycle notices for the Observer pattern.
type EventType string

const (
	// Bus
	Published     EventType = "published"
	Dropped       EventType = "dropped"
	Delivered     EventType = "delivered"
	Undelivered   EventType = "undelivered"
	ListenerPanic EventType = "listener_panic"

	// Scheduler
	TickDone   EventType = "tick_done"
	ThinkPanic EventType = "think_panic"
	SlowThink  EventType = "slow_think"

	// Pools
	Spawned       EventType = "spawned"
	Despawned     EventType = "despawned"
	DespawnFailed EventType = "despawn_failed"

	// World
	FrameDone     EventType = "frame_done"
	ConfigApplied EventType = "config_applied"

	// Journal
	JournalDropped EventType = "journal_dropped"
	JournalError   EventType = "journal_error"

	Error EventType = "error"
)

// Failure reports whether the notice describes something that went wrong.
func (t EventType) Failure() bool {
	switch t {
	case Undelivered, ListenerPanic, ThinkPanic, SlowThink, DespawnFailed, JournalDropped, JournalError, Error:
		return true
	}
	return false
}

// Event carries telemetry for observers.
type Event struct {
	Type      EventType
	Kind      Kind   // message kind, bus notices only
	Subject   string // entity or instance description
	Prototype string // pool notices only
	Count     int
	Duration  time.Duration
	Err       error
}
