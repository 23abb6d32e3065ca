package redisstream

import (
	"fmt"

	"github.com/trickstertwo/xframe"
)

// Adapter: Redis Streams Journal (Strategy + Adapter patterns)

const JournalName = "redis-streams"

func init() {
	if err := xframe.RegisterJournal(JournalName, func(cfg map[string]any) (xframe.Journal, error) {
		return NewJournal(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xframe: failed to register journal %q: %w", JournalName, err))
	}
}

// Use builds a World journaling to Redis Streams and returns it.
// It panics when Redis cannot be reached.
func Use(cfg Config, opts ...Option) *xframe.World {
	wb := xframe.NewWorldBuilder().
		WithJournal(JournalName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(wb)
		}
	}
	w, err := wb.Build()
	if err != nil {
		panic(fmt.Errorf("redisstream.Use: %w", err))
	}
	return w
}
