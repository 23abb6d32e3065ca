package xframe

import (
	"fmt"
	"sync"
)

// Pool recycles the instances of a single Prototype. Active instances are
// tracked with their cached Poolable hooks; returned instances wait in a FIFO
// queue for reuse.
type Pool struct {
	proto Prototype

	mu       sync.Mutex
	active   map[Instance]*pooled
	inactive []*pooled
}

type pooled struct {
	inst  Instance
	hooks []Poolable
}

// NewPool returns an empty pool for proto. It panics on a nil or
// non-comparable prototype.
func NewPool(proto Prototype) *Pool {
	mustPrototype(proto)
	return &Pool{
		proto:  proto,
		active: make(map[Instance]*pooled),
	}
}

// Prototype returns the template this pool instantiates.
func (p *Pool) Prototype() Prototype { return p.proto }

// Spawn hands out an instance placed at pos/rot: a returned one if any is
// waiting, a fresh one otherwise. Spawned hooks run on both paths.
func (p *Pool) Spawn(pos Vec3, rot Quat) Instance {
	inst, _ := p.spawn(pos, rot)
	return inst
}

func (p *Pool) spawn(pos Vec3, rot Quat) (Instance, bool) {
	p.mu.Lock()
	var e *pooled
	if len(p.inactive) > 0 {
		e = p.inactive[0]
		p.inactive[0] = nil
		p.inactive = p.inactive[1:]
	}
	p.mu.Unlock()

	reused := e != nil
	if !reused {
		inst := p.proto.Instantiate(pos, rot)
		if inst == nil || !isComparable(inst) {
			panic(fmt.Sprintf("xframe: prototype %s instantiated a nil or non-comparable instance", describe(p.proto)))
		}
		if p.tracks(inst) {
			panic(fmt.Sprintf("xframe: prototype %s instantiated %s, which equals an instance the pool already holds; instances need distinct identity", describe(p.proto), describe(inst)))
		}
		e = &pooled{inst: inst, hooks: poolableHooks(inst)}
	}

	e.inst.SetActive(true)
	e.inst.SetTransform(pos, rot)
	for _, h := range e.hooks {
		h.Spawned()
	}

	p.mu.Lock()
	p.active[e.inst] = e
	p.mu.Unlock()
	return e.inst, reused
}

// tracks reports whether an instance equal to inst is active or queued.
func (p *Pool) tracks(inst Instance) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[inst]; ok {
		return true
	}
	for _, e := range p.inactive {
		if e.inst == inst {
			return true
		}
	}
	return false
}

// Despawn returns inst to the pool. It fails with ErrNotPooled when inst is not
// currently active in this pool, which includes a second Despawn of the same
// instance.
func (p *Pool) Despawn(inst Instance) error {
	if inst == nil || !isComparable(inst) {
		return fmt.Errorf("%w: %s", ErrNotPooled, describe(inst))
	}
	p.mu.Lock()
	e, ok := p.active[inst]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotPooled, describe(inst))
	}
	delete(p.active, inst)
	p.mu.Unlock()

	for _, h := range e.hooks {
		h.Despawned()
	}
	e.inst.SetActive(false)

	p.mu.Lock()
	p.inactive = append(p.inactive, e)
	p.mu.Unlock()
	return nil
}

// Active returns the number of instances currently handed out.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Inactive returns the number of instances waiting for reuse.
func (p *Pool) Inactive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inactive)
}

// Stats returns the roll call entry for this pool.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Prototype: describe(p.proto),
		Active:    len(p.active),
		Inactive:  len(p.inactive),
	}
}

// poolableHooks collects the reuse hooks of a freshly created instance.
func poolableHooks(inst Instance) []Poolable {
	var hooks []Poolable
	if h, ok := inst.(Poolable); ok {
		hooks = append(hooks, h)
	}
	if host, ok := inst.(ComponentHost); ok {
		for _, c := range host.PoolableComponents() {
			if c != nil {
				hooks = append(hooks, c)
			}
		}
	}
	return hooks
}

func mustPrototype(proto Prototype) {
	if proto == nil || !isComparable(proto) {
		panic(fmt.Sprintf("xframe: prototype %s is nil or not comparable", describe(proto)))
	}
}
