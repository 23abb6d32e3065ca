package xframe

import (
	"context"
	"time"
)

// Listener receives dispatched messages. Returning true consumes the message and
// stops dispatch to the listeners attached after it.
//
// Listeners are compared by identity, so implementations must be comparable
// (pointer receivers). Use Handle or On to wrap a plain func.
type Listener interface {
	OnMessage(msg Message) bool
}

// Updateable is anything the Scheduler drives once per update pass.
// dt is the real elapsed frame time, not the throttled interval.
type Updateable interface {
	Think(dt time.Duration)
}

// Beginner is called once, on the first Scheduler.Activate.
type Beginner interface {
	Begin()
}

// Activator is called on every Scheduler.Activate after the first.
type Activator interface {
	OnActivate()
}

// Killer is called on Scheduler.Deactivate.
type Killer interface {
	OnKill()
}

// Instance is a concrete host object managed by a prefab pool.
type Instance interface {
	SetActive(active bool)
	SetTransform(pos Vec3, rot Quat)
}

// Prototype is the template pooled instances are created from.
// Prototypes key the pool registry and must be comparable. Instantiate must
// return a fresh instance that compares unequal to every earlier one, such as
// a pointer to a struct with fields; a pool panics on a duplicate.
type Prototype interface {
	Instantiate(pos Vec3, rot Quat) Instance
}

// Poolable hooks run when a pooled instance is handed out (Spawned) and
// returned (Despawned).
type Poolable interface {
	Spawned()
	Despawned()
}

// ComponentHost exposes the Poolable components attached to an instance.
// The list is read once, when the instance is first created.
type ComponentHost interface {
	PoolableComponents() []Poolable
}

// Observer receives lifecycle notices. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e Event)
}

// Journal is the Strategy interface for message journal backends.
type Journal interface {
	// Append persists records in order.
	Append(ctx context.Context, recs ...*Record) error
	// Close releases resources.
	Close(ctx context.Context) error
}

// Codec is the Strategy for encoding message payloads into journal records.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Publisher is the slice of the Bus that game logic usually needs.
type Publisher interface {
	Publish(msg Message) bool
}

// Spawner is the slice of the pool registry that game logic usually needs.
type Spawner interface {
	Spawn(proto Prototype, pos Vec3, rot Quat) Instance
	Despawn(inst Instance) error
}

// HealthChecker provides health status for monitoring.
type HealthChecker interface {
	Health() HealthStatus
}

var (
	_ Publisher     = (*Bus)(nil)
	_ Spawner       = (*Pools)(nil)
	_ HealthChecker = (*World)(nil)
)
