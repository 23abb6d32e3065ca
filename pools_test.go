package xframe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProto struct {
	name    string
	created int
}

func (p *testProto) Instantiate(pos Vec3, rot Quat) Instance {
	p.created++
	return &testInstance{id: p.created, pos: pos, rot: rot}
}

func (p *testProto) String() string { return p.name }

type testInstance struct {
	id        int
	active    bool
	pos       Vec3
	rot       Quat
	spawns    int
	despawns  int
	component *testComponent
}

func (i *testInstance) SetActive(active bool)           { i.active = active }
func (i *testInstance) SetTransform(pos Vec3, rot Quat) { i.pos, i.rot = pos, rot }
func (i *testInstance) Spawned()                        { i.spawns++ }
func (i *testInstance) Despawned()                      { i.despawns++ }

type testComponent struct{ spawns, despawns int }

func (c *testComponent) Spawned()   { c.spawns++ }
func (c *testComponent) Despawned() { c.despawns++ }

// hostProto builds instances exposing a Poolable component.
type hostProto struct{}

func (hostProto) Instantiate(pos Vec3, rot Quat) Instance {
	return &hostInstance{testInstance: testInstance{pos: pos, rot: rot, component: &testComponent{}}}
}

type hostInstance struct{ testInstance }

func (h *hostInstance) PoolableComponents() []Poolable {
	return []Poolable{h.component, nil}
}

type nilProto struct{}

func (nilProto) Instantiate(Vec3, Quat) Instance { return nil }

// tokenProto hands out value-typed instances that all compare equal.
type tokenProto struct{}

func (tokenProto) Instantiate(Vec3, Quat) Instance { return token{tag: "t"} }

type token struct{ tag string }

func (token) SetActive(bool)          {}
func (token) SetTransform(Vec3, Quat) {}

// mapProto is deliberately not comparable.
type mapProto map[string]int

func (mapProto) Instantiate(Vec3, Quat) Instance { return &testInstance{} }

func TestPools_RoundTripReuses(t *testing.T) {
	ps := NewPools()
	proto := &testProto{name: "crate"}

	first := ps.Spawn(proto, Vec3{X: 1}, Identity)
	inst := first.(*testInstance)
	assert.True(t, inst.active)
	assert.Equal(t, 1, inst.spawns)

	require.NoError(t, ps.Despawn(first))
	assert.False(t, inst.active)
	assert.Equal(t, 1, inst.despawns)

	rot := Quat{Y: 1}
	second := ps.Spawn(proto, Vec3{X: 2, Y: 3}, rot)
	assert.Same(t, inst, second.(*testInstance))
	assert.Equal(t, 1, proto.created)
	assert.Equal(t, Vec3{X: 2, Y: 3}, inst.pos)
	assert.Equal(t, rot, inst.rot)
	assert.True(t, inst.active)
	assert.Equal(t, 2, inst.spawns, "one Spawned call between despawn and respawn")

	m := ps.Metrics()
	assert.Equal(t, uint64(2), m.Spawned)
	assert.Equal(t, uint64(1), m.Reused)
	assert.Equal(t, uint64(1), m.Created)
	assert.Equal(t, uint64(1), m.Despawned)
}

func TestPools_DoubleDespawn(t *testing.T) {
	ps := NewPools()
	rec := &recorder{}
	ps.AddObserver(rec)
	proto := &testProto{name: "crate"}

	inst := ps.Spawn(proto, Vec3{}, Identity)
	require.NoError(t, ps.Despawn(inst))

	err := ps.Despawn(inst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPooled))
	assert.Equal(t, 1, inst.(*testInstance).despawns)
	assert.Equal(t, 1, rec.count(DespawnFailed))

	pool, ok := ps.Pool(proto)
	require.True(t, ok)
	assert.Equal(t, 1, pool.Inactive, "not enqueued twice")

	// Two spawns must hand out two distinct instances.
	a := ps.Spawn(proto, Vec3{}, Identity)
	b := ps.Spawn(proto, Vec3{}, Identity)
	assert.NotSame(t, a.(*testInstance), b.(*testInstance))
}

func TestPools_DespawnUntracked(t *testing.T) {
	ps := NewPools()
	assert.ErrorIs(t, ps.Despawn(&testInstance{}), ErrNotPooled)
	assert.ErrorIs(t, ps.Despawn(nil), ErrNotPooled)
	assert.Equal(t, uint64(2), ps.Metrics().DespawnFailures)
}

func TestPools_Prespawn(t *testing.T) {
	ps := NewPools()
	proto := &testProto{name: "bullet"}

	warm := ps.Prespawn(proto, 5)
	require.Len(t, warm, 5)
	assert.Equal(t, 5, proto.created)

	pool, ok := ps.Pool(proto)
	require.True(t, ok)
	assert.Equal(t, 5, pool.Inactive)
	assert.Equal(t, 0, pool.Active)

	inst := ps.Spawn(proto, Vec3{}, Identity)
	assert.Contains(t, warm, inst)
	assert.Equal(t, 5, proto.created, "no new construction")
	pool, _ = ps.Pool(proto)
	assert.Equal(t, PoolStats{Prototype: "bullet", Active: 1, Inactive: 4}, pool)

	assert.Nil(t, ps.Prespawn(proto, 0))
}

func TestPools_ReuseIsFIFO(t *testing.T) {
	ps := NewPools()
	proto := &testProto{name: "fifo"}
	warm := ps.Prespawn(proto, 3)

	for _, want := range warm {
		got := ps.Spawn(proto, Vec3{}, Identity)
		assert.Same(t, want.(*testInstance), got.(*testInstance))
	}
}

func TestPools_ComponentHooks(t *testing.T) {
	ps := NewPools()
	proto := hostProto{}

	inst := ps.SpawnDefault(proto).(*hostInstance)
	assert.Equal(t, Vec3{}, inst.pos)
	assert.Equal(t, Identity, inst.rot)
	assert.Equal(t, 1, inst.spawns)
	assert.Equal(t, 1, inst.component.spawns)

	require.NoError(t, ps.Despawn(inst))
	assert.Equal(t, 1, inst.component.despawns)

	ps.SpawnDefault(proto)
	assert.Equal(t, 2, inst.component.spawns)
}

func TestPools_OwnsAndRollCall(t *testing.T) {
	ps := NewPools()
	crates := &testProto{name: "crate"}
	barrels := &testProto{name: "barrel"}

	c := ps.Spawn(crates, Vec3{}, Identity)
	ps.Prespawn(barrels, 2)
	ps.Spawn(barrels, Vec3{}, Identity)

	assert.True(t, ps.Owns(c))
	assert.False(t, ps.Owns(&testInstance{}))

	assert.Equal(t, []PoolStats{
		{Prototype: "crate", Active: 1, Inactive: 0},
		{Prototype: "barrel", Active: 1, Inactive: 1},
	}, ps.RollCall())

	m := ps.Metrics()
	assert.Equal(t, 2, m.Pools)
	assert.Equal(t, 2, m.Active)
}

func TestPools_Reset(t *testing.T) {
	ps := NewPools()
	proto := &testProto{name: "crate"}
	inst := ps.Spawn(proto, Vec3{}, Identity)

	ps.Reset()
	assert.False(t, ps.Owns(inst))
	_, ok := ps.Pool(proto)
	assert.False(t, ok)
	assert.ErrorIs(t, ps.Despawn(inst), ErrNotPooled)

	ps.Spawn(proto, Vec3{}, Identity)
	assert.Equal(t, 2, proto.created, "pools start empty after reset")
}

func TestPools_BadPrototypePanics(t *testing.T) {
	ps := NewPools()
	assert.Panics(t, func() { ps.Spawn(nil, Vec3{}, Identity) })
	assert.Panics(t, func() { ps.Spawn(mapProto{}, Vec3{}, Identity) })
	assert.Panics(t, func() { ps.Spawn(nilProto{}, Vec3{}, Identity) })
}

func TestPool_DespawnForeignInstance(t *testing.T) {
	a := NewPool(&testProto{name: "a"})
	b := NewPool(&testProto{name: "b"})

	inst := a.Spawn(Vec3{}, Identity)
	assert.ErrorIs(t, b.Despawn(inst), ErrNotPooled)
	assert.NoError(t, a.Despawn(inst))
	assert.Equal(t, 1, a.Inactive())
	assert.Equal(t, 0, b.Inactive())
}

func TestPools_Events(t *testing.T) {
	ps := NewPools()
	rec := &recorder{}
	ps.AddObserver(rec)
	proto := &testProto{name: "crate"}

	inst := ps.Spawn(proto, Vec3{}, Identity)
	require.NoError(t, ps.Despawn(inst))

	e, ok := rec.last(Spawned)
	require.True(t, ok)
	assert.Equal(t, "crate", e.Prototype)
	assert.Equal(t, 1, rec.count(Despawned))

	ps.RemoveObserver(rec)
	ps.Spawn(proto, Vec3{}, Identity)
	assert.Equal(t, 1, rec.count(Spawned))
}

func TestPools_EqualInstancesPanic(t *testing.T) {
	ps := NewPools()
	first := ps.Spawn(tokenProto{}, Vec3{}, Identity)

	assert.Panics(t, func() { ps.Spawn(tokenProto{}, Vec3{}, Identity) }, "equal to an active instance")
	assert.True(t, ps.Owns(first))

	require.NoError(t, ps.Despawn(first))
	pool, ok := ps.Pool(tokenProto{})
	require.True(t, ok)
	assert.Equal(t, 0, pool.Active)
	assert.Equal(t, 1, pool.Inactive)

	// The queued instance is reused rather than duplicated.
	assert.Equal(t, first, ps.Spawn(tokenProto{}, Vec3{}, Identity))
	assert.Panics(t, func() { ps.Prespawn(tokenProto{}, 2) })
}

func TestPools_PoolIsReadOnlyView(t *testing.T) {
	ps := NewPools()
	proto := &testProto{name: "crate"}
	inst := ps.Spawn(proto, Vec3{}, Identity)

	view, ok := ps.Pool(proto)
	require.True(t, ok)
	view.Active = 0

	assert.True(t, ps.Owns(inst))
	again, _ := ps.Pool(proto)
	assert.Equal(t, 1, again.Active)
	assert.Equal(t, 1, ps.Metrics().Active)

	require.NoError(t, ps.Despawn(inst))
	assert.False(t, ps.Owns(inst))
	again, _ = ps.Pool(proto)
	assert.Equal(t, PoolStats{Prototype: "crate", Active: 0, Inactive: 1}, again)
	assert.Equal(t, 0, ps.Metrics().Active)
}
