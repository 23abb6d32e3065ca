package xframe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 16 * time.Millisecond

type lifecycleEntity struct {
	begins, activates, kills, thinks int
}

func (e *lifecycleEntity) Think(time.Duration) { e.thinks++ }
func (e *lifecycleEntity) Begin()              { e.begins++ }
func (e *lifecycleEntity) OnActivate()         { e.activates++ }
func (e *lifecycleEntity) OnKill()             { e.kills++ }

// funcUpdateable is deliberately not comparable.
type funcUpdateable func(time.Duration)

func (f funcUpdateable) Think(dt time.Duration) { f(dt) }

func TestScheduler_RegisterIdempotent(t *testing.T) {
	s := NewScheduler(0)
	c := &counter{}

	assert.True(t, s.Register(c))
	assert.False(t, s.Register(c))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Tick(frame))
	assert.Equal(t, 1, c.thinks)
}

func TestScheduler_RegisterRejects(t *testing.T) {
	s := NewScheduler(0)
	assert.False(t, s.Register(nil))
	assert.False(t, s.Register(funcUpdateable(func(time.Duration) {})))
	assert.False(t, s.Deregister(&counter{}))
	assert.False(t, s.Registered(nil))
}

func TestScheduler_RegistrationOrder(t *testing.T) {
	s := NewScheduler(0)

	var order []int
	for i := 0; i < 4; i++ {
		i := i
		require.True(t, s.Register(&thinkFunc{fn: func(time.Duration) { order = append(order, i) }}))
	}
	s.Tick(frame)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestScheduler_DeregisterStops(t *testing.T) {
	s := NewScheduler(0)
	c := &counter{}
	require.True(t, s.Register(c))
	s.Tick(frame)

	assert.True(t, s.Deregister(c))
	assert.False(t, s.Deregister(c))
	s.Tick(frame)
	assert.Equal(t, 1, c.thinks)
	assert.False(t, s.Registered(c))
}

func TestScheduler_IntervalThrottlesWithRealDelta(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)
	c := &counter{}
	require.True(t, s.Register(c))

	// 16, 32, 48 stay at or below the interval; 64 fires.
	assert.False(t, s.Tick(frame))
	assert.False(t, s.Tick(frame))
	assert.False(t, s.Tick(frame))
	assert.True(t, s.Tick(frame))
	assert.Equal(t, 1, c.thinks)
	assert.Equal(t, []time.Duration{frame}, c.dts)

	// Remainder 14ms carries: 30, 46, 62 fires.
	assert.False(t, s.Tick(frame))
	assert.False(t, s.Tick(frame))
	assert.True(t, s.Tick(frame))
	assert.Equal(t, 2, c.thinks)
}

func TestScheduler_LongFrameCatchesUp(t *testing.T) {
	s := NewScheduler(10 * time.Millisecond)
	c := &counter{}
	require.True(t, s.Register(c))

	// One pass per tick; the 25ms remainder of a 35ms frame keeps short ticks
	// firing until it drops to the interval.
	assert.True(t, s.Tick(35*time.Millisecond))
	assert.True(t, s.Tick(time.Millisecond))  // 26 -> 16
	assert.True(t, s.Tick(time.Millisecond))  // 17 -> 7
	assert.False(t, s.Tick(time.Millisecond)) // 8
	assert.Equal(t, 3, c.thinks)
	assert.Equal(t, []time.Duration{35 * time.Millisecond, time.Millisecond, time.Millisecond}, c.dts)

	// A very long frame leaves a large backlog that the next tick still sees.
	assert.True(t, s.Tick(time.Second))
	assert.True(t, s.Tick(time.Millisecond))
	assert.Equal(t, 5, c.thinks)
}

func TestScheduler_NegativeDeltaClamped(t *testing.T) {
	s := NewScheduler(0)
	c := &counter{}
	require.True(t, s.Register(c))

	assert.True(t, s.Tick(-time.Second))
	assert.Equal(t, []time.Duration{0}, c.dts)
}

func TestScheduler_DeregisterMidPassSkips(t *testing.T) {
	s := NewScheduler(0)
	victim := &counter{}
	killer := &thinkFunc{fn: func(time.Duration) { s.Deregister(victim) }}
	require.True(t, s.Register(killer))
	require.True(t, s.Register(victim))

	s.Tick(frame)
	assert.Equal(t, 0, victim.thinks)
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RegisterMidPassStartsNextPass(t *testing.T) {
	s := NewScheduler(0)
	late := &counter{}
	spawner := &thinkFunc{fn: func(time.Duration) { s.Register(late) }}
	require.True(t, s.Register(spawner))

	s.Tick(frame)
	assert.Equal(t, 0, late.thinks)
	s.Tick(frame)
	assert.Equal(t, 1, late.thinks)
}

func TestScheduler_PanicIsolatedByDefault(t *testing.T) {
	s := NewScheduler(0)
	rec := &recorder{}
	s.AddObserver(rec)

	after := &counter{}
	require.True(t, s.Register(&thinkFunc{fn: func(time.Duration) { panic("boom") }}))
	require.True(t, s.Register(after))

	require.NotPanics(t, func() { s.Tick(frame) })
	assert.Equal(t, 1, after.thinks)
	assert.Equal(t, uint64(1), s.Metrics().ThinkPanics)

	e, ok := rec.last(ThinkPanic)
	require.True(t, ok)
	assert.True(t, errors.Is(e.Err, ErrThinkPanic))
}

func TestScheduler_FailFastPropagates(t *testing.T) {
	s := NewScheduler(0)
	s.SetFailFast(true)

	after := &counter{}
	require.True(t, s.Register(&thinkFunc{fn: func(time.Duration) { panic("boom") }}))
	require.True(t, s.Register(after))

	assert.PanicsWithValue(t, "boom", func() { s.Tick(frame) })
	assert.Equal(t, 0, after.thinks)

	s.SetFailFast(false)
	require.NotPanics(t, func() { s.Tick(frame) })
	assert.Equal(t, 1, after.thinks)
}

func TestScheduler_PauseResume(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)
	c := &counter{}
	require.True(t, s.Register(c))

	s.Tick(40 * time.Millisecond)
	assert.True(t, s.Pause())
	assert.False(t, s.Pause())
	assert.True(t, s.Paused())
	assert.False(t, s.Tick(time.Second))
	assert.Equal(t, 0, c.thinks)

	assert.True(t, s.Resume())
	assert.False(t, s.Resume())
	// The 40ms accumulated before the pause is gone.
	assert.False(t, s.Tick(40*time.Millisecond))
	assert.True(t, s.Tick(20*time.Millisecond))
	assert.Equal(t, 1, c.thinks)
}

func TestScheduler_SetIntervalResetsTimer(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)
	c := &counter{}
	require.True(t, s.Register(c))

	s.Tick(40 * time.Millisecond)
	s.SetInterval(30 * time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, s.Interval())
	assert.False(t, s.Tick(20*time.Millisecond))
	assert.True(t, s.Tick(20*time.Millisecond))
}

func TestScheduler_Middleware(t *testing.T) {
	s := NewScheduler(0)

	var seen []string
	s.Use(func(next ThinkFunc) ThinkFunc {
		return func(u Updateable, dt time.Duration) error {
			seen = append(seen, "before")
			err := next(u, dt)
			seen = append(seen, "after")
			return err
		}
	})
	require.True(t, s.Register(&thinkFunc{fn: func(time.Duration) { seen = append(seen, "think") }}))

	s.Tick(frame)
	assert.Equal(t, []string{"before", "think", "after"}, seen)
}

func TestScheduler_SlowThinkReported(t *testing.T) {
	s := NewScheduler(0)
	rec := &recorder{}
	s.AddObserver(rec)
	s.Use(SlowThinkMiddleware(time.Millisecond, nil, s.reportSlow))

	slow := &thinkFunc{fn: func(time.Duration) { time.Sleep(5 * time.Millisecond) }}
	require.True(t, s.Register(slow))
	require.True(t, s.Register(&counter{}))

	s.Tick(frame)
	assert.Equal(t, uint64(1), s.Metrics().SlowThinks)
	e, ok := rec.last(SlowThink)
	require.True(t, ok)
	assert.GreaterOrEqual(t, e.Duration, 5*time.Millisecond)
}

func TestScheduler_Metrics(t *testing.T) {
	s := NewScheduler(0)
	rec := &recorder{}
	s.AddObserver(rec)
	require.True(t, s.Register(&counter{}))
	require.True(t, s.Register(&counter{}))

	s.Tick(frame)
	s.Tick(frame)
	m := s.Metrics()
	assert.Equal(t, uint64(2), m.Ticks)
	assert.Equal(t, uint64(2), m.Passes)
	assert.Equal(t, uint64(4), m.Thinks)
	assert.Equal(t, 2, m.Registered)
	assert.Equal(t, 2, rec.count(TickDone))

	e, _ := rec.last(TickDone)
	assert.Equal(t, 2, e.Count)
}

func TestScheduler_ActivateLifecycle(t *testing.T) {
	s := NewScheduler(0)
	e := &lifecycleEntity{}

	assert.True(t, s.Activate(e))
	assert.Equal(t, 1, e.begins)
	assert.Equal(t, 0, e.activates)
	assert.False(t, s.Activate(e), "already registered")

	assert.True(t, s.Deactivate(e))
	assert.Equal(t, 1, e.kills)
	assert.False(t, s.Deactivate(e))
	assert.Equal(t, 1, e.kills, "OnKill only for registered entities")

	assert.True(t, s.Activate(e))
	assert.Equal(t, 1, e.begins)
	assert.Equal(t, 1, e.activates)

	s.Tick(frame)
	assert.Equal(t, 1, e.thinks)

	s.Forget(e)
	assert.Equal(t, 2, e.kills)
	assert.True(t, s.Activate(e))
	assert.Equal(t, 2, e.begins, "forgotten entities begin again")
}

func TestScheduler_ActivateAfterRegisterCallsNoHooks(t *testing.T) {
	s := NewScheduler(0)
	e := &lifecycleEntity{}
	require.True(t, s.Register(e))

	assert.False(t, s.Activate(e))
	assert.Equal(t, 0, e.begins)
	assert.Equal(t, 0, e.activates)

	require.True(t, s.Deregister(e))
	assert.True(t, s.Activate(e))
	assert.Equal(t, 1, e.begins)
}

func TestScheduler_MiddlewareErrorsAreNotPanics(t *testing.T) {
	s := NewScheduler(0)
	rec := &recorder{}
	s.AddObserver(rec)
	errSkipped := errors.New("skipped")
	s.Use(func(next ThinkFunc) ThinkFunc {
		return func(u Updateable, dt time.Duration) error { return errSkipped }
	})
	s.Register(&counter{})

	s.Tick(frame)
	m := s.Metrics()
	assert.Equal(t, uint64(0), m.ThinkPanics)
	assert.Equal(t, uint64(1), m.ThinkErrors)
	assert.Equal(t, 0, rec.count(ThinkPanic))
	e, ok := rec.last(Error)
	require.True(t, ok)
	assert.ErrorIs(t, e.Err, errSkipped)
}

func TestScheduler_ActivatePlainUpdateable(t *testing.T) {
	s := NewScheduler(0)
	c := &counter{}
	assert.True(t, s.Activate(c))
	assert.True(t, s.Deactivate(c))
	assert.False(t, s.Activate(nil))
}
