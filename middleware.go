package xframe

import (
	"errors"
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
)

// ErrThinkPanic wraps a panic raised by an entity's Think.
var ErrThinkPanic = errors.New("xframe: think panicked")

// ThinkFunc drives one entity for one update pass.
type ThinkFunc func(u Updateable, dt time.Duration) error

// Middleware composes concerns around a ThinkFunc.
type Middleware func(next ThinkFunc) ThinkFunc

func callThink(u Updateable, dt time.Duration) error {
	u.Think(dt)
	return nil
}

// RecoveryMiddleware converts a panicking Think into an ErrThinkPanic error so
// one broken entity does not abort the rest of the pass.
func RecoveryMiddleware() Middleware {
	return func(next ThinkFunc) ThinkFunc {
		return func(u Updateable, dt time.Duration) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrThinkPanic, r)
				}
			}()
			return next(u, dt)
		}
	}
}

// SlowThinkMiddleware calls onSlow for every Think that takes longer than budget.
// A budget <= 0 makes it a no-op.
func SlowThinkMiddleware(budget time.Duration, clock xclock.Clock, onSlow func(u Updateable, took time.Duration)) Middleware {
	if budget <= 0 || onSlow == nil {
		return func(next ThinkFunc) ThinkFunc { return next }
	}
	if clock == nil {
		clock = xclock.Default()
	}
	return func(next ThinkFunc) ThinkFunc {
		return func(u Updateable, dt time.Duration) error {
			start := clock.Now()
			err := next(u, dt)
			if took := clock.Since(start); took > budget {
				onSlow(u, took)
			}
			return err
		}
	}
}

// Chain composes middlewares around a ThinkFunc in order.
func Chain(h ThinkFunc, mws ...Middleware) ThinkFunc {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
