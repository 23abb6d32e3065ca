package xframe

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Pools is the prefab pool registry. It keeps one Pool per Prototype, created
// on first spawn, and remembers which pool owns every active instance so
// callers can despawn without naming the prototype.
type Pools struct {
	mu     sync.Mutex
	pools  map[Prototype]*Pool
	order  []Prototype
	owners map[Instance]*Pool

	observers *observerSet
	metrics   poolMetrics
}

type poolMetrics struct {
	spawned         atomic.Uint64
	reused          atomic.Uint64
	created         atomic.Uint64
	despawned       atomic.Uint64
	despawnFailures atomic.Uint64
}

// NewPools returns an empty registry.
func NewPools() *Pools {
	return &Pools{
		pools:     make(map[Prototype]*Pool),
		owners:    make(map[Instance]*Pool),
		observers: &observerSet{},
	}
}

// Spawn hands out an instance of proto placed at pos/rot. It never fails; a
// nil or non-comparable prototype is a programming error and panics.
func (ps *Pools) Spawn(proto Prototype, pos Vec3, rot Quat) Instance {
	mustPrototype(proto)

	ps.mu.Lock()
	pool, ok := ps.pools[proto]
	if !ok {
		pool = NewPool(proto)
		ps.pools[proto] = pool
		ps.order = append(ps.order, proto)
	}
	ps.mu.Unlock()

	inst, reused := pool.spawn(pos, rot)

	ps.mu.Lock()
	ps.owners[inst] = pool
	ps.mu.Unlock()

	ps.metrics.spawned.Add(1)
	if reused {
		ps.metrics.reused.Add(1)
	} else {
		ps.metrics.created.Add(1)
	}
	ps.observers.notify(Event{Type: Spawned, Subject: describe(inst), Prototype: describe(proto)})
	return inst
}

// SpawnDefault spawns proto at the origin with no rotation, for instances that
// only need to exist.
func (ps *Pools) SpawnDefault(proto Prototype) Instance {
	return ps.Spawn(proto, Vec3{}, Identity)
}

// Despawn returns inst to the pool that spawned it. Untracked instances,
// including ones already despawned, fail with ErrNotPooled and are reported
// to observers.
func (ps *Pools) Despawn(inst Instance) error {
	if inst == nil || !isComparable(inst) {
		return ps.despawnFailed(inst, "", fmt.Errorf("%w: %s", ErrNotPooled, describe(inst)))
	}

	// Claim the owner entry first so two racing despawns cannot both succeed.
	ps.mu.Lock()
	pool, ok := ps.owners[inst]
	if ok {
		delete(ps.owners, inst)
	}
	ps.mu.Unlock()

	if !ok {
		return ps.despawnFailed(inst, "", fmt.Errorf("%w: %s is not tracked by the pool registry", ErrNotPooled, describe(inst)))
	}
	if err := pool.Despawn(inst); err != nil {
		return ps.despawnFailed(inst, describe(pool.proto), err)
	}

	ps.metrics.despawned.Add(1)
	ps.observers.notify(Event{Type: Despawned, Subject: describe(inst), Prototype: describe(pool.proto)})
	return nil
}

func (ps *Pools) despawnFailed(inst Instance, proto string, err error) error {
	ps.metrics.despawnFailures.Add(1)
	ps.observers.notify(Event{Type: DespawnFailed, Subject: describe(inst), Prototype: proto, Err: err})
	return err
}

// Prespawn warms the pool of proto with n inactive instances and returns them.
func (ps *Pools) Prespawn(proto Prototype, n int) []Instance {
	if n <= 0 {
		return nil
	}
	spawned := make([]Instance, 0, n)
	for i := 0; i < n; i++ {
		spawned = append(spawned, ps.SpawnDefault(proto))
	}
	for _, inst := range spawned {
		_ = ps.Despawn(inst)
	}
	return spawned
}

// Reset forgets every pool and every tracked instance. Call it when tearing
// down a level whose host objects are destroyed elsewhere.
func (ps *Pools) Reset() {
	ps.mu.Lock()
	ps.pools = make(map[Prototype]*Pool)
	ps.order = nil
	ps.owners = make(map[Instance]*Pool)
	ps.mu.Unlock()
}

// Pool returns the roll call entry of proto's pool, if one was created. The
// pool itself stays private so every spawn and despawn goes through the
// registry's owner map.
func (ps *Pools) Pool(proto Prototype) (PoolStats, bool) {
	if proto == nil || !isComparable(proto) {
		return PoolStats{}, false
	}
	ps.mu.Lock()
	p, ok := ps.pools[proto]
	ps.mu.Unlock()
	if !ok {
		return PoolStats{}, false
	}
	return p.Stats(), true
}

// Owns reports whether inst is an active instance tracked by the registry.
func (ps *Pools) Owns(inst Instance) bool {
	if inst == nil || !isComparable(inst) {
		return false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_, ok := ps.owners[inst]
	return ok
}

// RollCall lists every pool in creation order.
func (ps *Pools) RollCall() []PoolStats {
	ps.mu.Lock()
	pools := make([]*Pool, 0, len(ps.order))
	for _, proto := range ps.order {
		pools = append(pools, ps.pools[proto])
	}
	ps.mu.Unlock()

	out := make([]PoolStats, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Stats())
	}
	return out
}

// AddObserver registers an observer for pool notices.
func (ps *Pools) AddObserver(obs Observer) { ps.observers.add(obs) }

// RemoveObserver removes an observer.
func (ps *Pools) RemoveObserver(obs Observer) { ps.observers.remove(obs) }

// Metrics returns a snapshot of registry telemetry.
func (ps *Pools) Metrics() PoolMetrics {
	ps.mu.Lock()
	pools := len(ps.pools)
	active := len(ps.owners)
	ps.mu.Unlock()

	return PoolMetrics{
		Spawned:         ps.metrics.spawned.Load(),
		Reused:          ps.metrics.reused.Load(),
		Created:         ps.metrics.created.Load(),
		Despawned:       ps.metrics.despawned.Load(),
		DespawnFailures: ps.metrics.despawnFailures.Load(),
		Pools:           pools,
		Active:          active,
	}
}
