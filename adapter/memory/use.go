package memory

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xframe"
	"github.com/trickstertwo/xlog"
)

// Use builds a World that journals every dispatched message into an in-memory
// ring and returns both.
//
// Example:
//
//	world, journal := memory.Use(memory.Config{Capacity: 1024},
//	    memory.WithLogger(logger),
//	    memory.WithDrainCap(32),
//	)
func Use(cfg Config, opts ...Option) (*xframe.World, *Journal) {
	j := NewJournal(cfg)
	wb := xframe.NewWorldBuilder().WithJournalInstance(j)

	for _, o := range opts {
		if o != nil {
			o(wb)
		}
	}

	w, err := wb.Build()
	if err != nil {
		panic(fmt.Errorf("memory.Use: %w", err))
	}
	return w, j
}

// toMap converts Config to the generic map expected by the journal factory.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"capacity": c.Capacity,
	}
}

// Option configures the xframe.WorldBuilder when calling Use.
type Option func(*xframe.WorldBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xframe.WorldBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xframe.WorldBuilder) { b.WithClock(c) }
}

// WithCodec selects the payload codec by name (default: "json").
func WithCodec(name string) Option {
	return func(b *xframe.WorldBuilder) { b.WithCodec(name) }
}

// WithDrainCap sets the per-frame message budget.
func WithDrainCap(n int) Option {
	return func(b *xframe.WorldBuilder) { b.WithDrainCap(n) }
}

// WithUpdateInterval throttles scheduler passes.
func WithUpdateInterval(d time.Duration) Option {
	return func(b *xframe.WorldBuilder) { b.WithUpdateInterval(d) }
}

// WithMiddleware wraps every Think.
func WithMiddleware(mw ...xframe.Middleware) Option {
	return func(b *xframe.WorldBuilder) { b.WithMiddleware(mw...) }
}

// WithObserver attaches observers for world notices.
func WithObserver(obs ...xframe.Observer) Option {
	return func(b *xframe.WorldBuilder) { b.WithObserver(obs...) }
}

// WithJournalWriter tunes batching between the frame and the journal.
func WithJournalWriter(cfg xframe.JournalWriterConfig) Option {
	return func(b *xframe.WorldBuilder) { b.WithJournalWriter(cfg) }
}
