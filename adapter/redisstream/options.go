package redisstream

import (
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xframe"
	"github.com/trickstertwo/xlog"
)

// Option configures the xframe.World construction when calling Use.
type Option func(*xframe.WorldBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xframe.WorldBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xframe.WorldBuilder) { b.WithClock(c) }
}

// WithCodec selects the payload codec by name (default: json).
func WithCodec(name string) Option {
	return func(b *xframe.WorldBuilder) { b.WithCodec(name) }
}

// WithConfig replaces the world configuration. The journal selection made by
// Use is kept when cfg names no journal.
func WithConfig(cfg xframe.Config) Option {
	return func(b *xframe.WorldBuilder) {
		if cfg.Journal == "" {
			cfg.Journal = JournalName
			cfg.JournalConfig = b.Config().JournalConfig
		}
		b.WithConfig(cfg)
	}
}

// WithJournalWriter tunes batching between the frame and Redis.
func WithJournalWriter(cfg xframe.JournalWriterConfig) Option {
	return func(b *xframe.WorldBuilder) { b.WithJournalWriter(cfg) }
}

// WithObserver attaches observers for world notices.
func WithObserver(obs ...xframe.Observer) Option {
	return func(b *xframe.WorldBuilder) { b.WithObserver(obs...) }
}
