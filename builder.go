package xframe

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// WorldBuilder constructs World instances (Builder pattern).
type WorldBuilder struct {
	cfg Config

	journalInst Journal
	codecInst   Codec

	middlewares []Middleware
	observers   []Observer
	logger      *xlog.Logger
	clock       xclock.Clock
	ctx         context.Context
}

// NewWorldBuilder returns a builder starting from Defaults().
func NewWorldBuilder() *WorldBuilder {
	return &WorldBuilder{cfg: Defaults()}
}

// Config returns the configuration the builder currently holds.
func (wb *WorldBuilder) Config() Config { return wb.cfg }

// WithConfig replaces the whole configuration.
func (wb *WorldBuilder) WithConfig(cfg Config) *WorldBuilder {
	wb.cfg = cfg
	return wb
}

func (wb *WorldBuilder) WithDrainCap(n int) *WorldBuilder {
	wb.cfg.DrainCap = n
	return wb
}

func (wb *WorldBuilder) WithUpdateInterval(d time.Duration) *WorldBuilder {
	wb.cfg.UpdateInterval = d
	return wb
}

func (wb *WorldBuilder) WithFailFast(failFast bool) *WorldBuilder {
	wb.cfg.FailFast = failFast
	return wb
}

// WithSlowThinkBudget reports any Think that takes longer than d.
func (wb *WorldBuilder) WithSlowThinkBudget(d time.Duration) *WorldBuilder {
	wb.cfg.SlowThinkBudget = d
	return wb
}

// WithLogRate throttles failure log lines (perSecond <= 0 disables throttling).
func (wb *WorldBuilder) WithLogRate(perSecond float64, burst int) *WorldBuilder {
	wb.cfg.LogRate = perSecond
	wb.cfg.LogBurst = burst
	return wb
}

// WithJournal selects a registered journal backend by name.
func (wb *WorldBuilder) WithJournal(name string, cfg map[string]any) *WorldBuilder {
	wb.cfg.Journal = name
	wb.cfg.JournalConfig = cfg
	return wb
}

// WithJournalInstance accepts a ready Journal (e.g. from an adapter's Use()).
func (wb *WorldBuilder) WithJournalInstance(j Journal) *WorldBuilder {
	wb.journalInst = j
	return wb
}

func (wb *WorldBuilder) WithJournalWriter(cfg JournalWriterConfig) *WorldBuilder {
	wb.cfg.JournalWriter = cfg
	return wb
}

func (wb *WorldBuilder) WithCodec(name string) *WorldBuilder {
	wb.cfg.JournalCodec = name
	return wb
}

// WithCodecInstance accepts a ready Codec instance.
func (wb *WorldBuilder) WithCodecInstance(c Codec) *WorldBuilder {
	wb.codecInst = c
	return wb
}

func (wb *WorldBuilder) WithMiddleware(mw ...Middleware) *WorldBuilder {
	for _, m := range mw {
		if m != nil {
			wb.middlewares = append(wb.middlewares, m)
		}
	}
	return wb
}

func (wb *WorldBuilder) WithObserver(obs ...Observer) *WorldBuilder {
	for _, o := range obs {
		if o != nil {
			wb.observers = append(wb.observers, o)
		}
	}
	return wb
}

func (wb *WorldBuilder) WithLogger(l *xlog.Logger) *WorldBuilder {
	wb.logger = l
	return wb
}

func (wb *WorldBuilder) WithClock(c xclock.Clock) *WorldBuilder {
	wb.clock = c
	return wb
}

// WithContext sets the parent context of the journal worker.
func (wb *WorldBuilder) WithContext(ctx context.Context) *WorldBuilder {
	wb.ctx = ctx
	return wb
}

func (wb *WorldBuilder) Build() (*World, error) {
	cfg := wb.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clk := wb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := wb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	cd := wb.codecInst
	if cd == nil {
		name := cfg.JournalCodec
		if name == "" {
			name = "json"
		}
		var err error
		if cd, err = NewCodec(name); err != nil {
			return nil, err
		}
	}

	var jr Journal
	switch {
	case wb.journalInst != nil:
		jr = wb.journalInst
	case cfg.Journal != "":
		var err error
		if jr, err = NewJournal(cfg.Journal, cfg.JournalConfig); err != nil {
			return nil, err
		}
	}

	// One observer set shared by every component, so an observer added to
	// the world sees everything.
	obs := &observerSet{}

	bus := NewBus(cfg.DrainCap)
	bus.clock = clk
	bus.observers = obs
	bus.codec = cd

	sched := NewScheduler(cfg.UpdateInterval)
	sched.clock = clk
	sched.observers = obs
	sched.SetFailFast(cfg.FailFast)
	if cfg.SlowThinkBudget > 0 {
		sched.Use(SlowThinkMiddleware(cfg.SlowThinkBudget, clk, sched.reportSlow))
	}
	if len(wb.middlewares) > 0 {
		sched.Use(wb.middlewares...)
	}

	pools := NewPools()
	pools.observers = obs

	w := &World{
		Bus:       bus,
		Scheduler: sched,
		Pools:     pools,
		clock:     clk,
		logger:    lg,
		observers: obs,
		cfg:       cfg,
	}

	if jr != nil {
		ctx := wb.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		jw := NewJournalWriter(ctx, jr, cfg.JournalWriter)
		jw.observers = obs
		bus.journal = jw
		w.journal = jw
	}

	// Attach logging observer first unless one was supplied.
	hasLoggingObserver := false
	for _, o := range wb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver {
		obs.add(NewLoggingObserver(lg, cfg.LogRate, cfg.LogBurst))
	}
	for _, o := range wb.observers {
		obs.add(o)
	}

	return w, nil
}

// New constructs a World via Builder and returns a close func for convenience.
func New(init func(wb *WorldBuilder)) (*World, func() error, error) {
	wb := NewWorldBuilder()
	if init != nil {
		init(wb)
	}
	w, err := wb.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return w.Close(context.Background()) }
	return w, closeFn, nil
}
