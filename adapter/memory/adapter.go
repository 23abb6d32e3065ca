package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/trickstertwo/xframe"
)

const JournalName = "memory"

func init() {
	if err := xframe.RegisterJournal(JournalName, func(cfg map[string]any) (xframe.Journal, error) {
		return NewJournal(ConfigFromMap(cfg)), nil
	}); err != nil {
		panic(fmt.Errorf("xframe/memory: failed to register journal: %w", err))
	}
}

// Config controls memory journal behavior.
type Config struct {
	// Capacity is the number of records retained; older records are evicted
	// first (default: 4096).
	Capacity int
}

func ConfigFromMap(cfg map[string]any) Config {
	getInt := func(k string, d int) int {
		switch v := cfg[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return d
		}
	}

	return Config{
		Capacity: maxInt(1, getInt("capacity", 4096)),
	}
}

// Journal implements xframe.Journal as a bounded in-memory ring (dev/testing).
// Not durable, but handy for tests and for inspecting recent traffic.
type Journal struct {
	cfg Config

	mu    sync.RWMutex
	ring  []*xframe.Record
	start int
	n     int

	closed atomic.Bool

	appended atomic.Uint64
	evicted  atomic.Uint64
}

var _ xframe.Journal = (*Journal)(nil)

// NewJournal creates a new in-memory journal.
func NewJournal(cfg Config) *Journal {
	if cfg.Capacity < 1 {
		cfg.Capacity = 4096
	}
	return &Journal{
		cfg:  cfg,
		ring: make([]*xframe.Record, cfg.Capacity),
	}
}

// Append stores records in order, evicting the oldest once full.
func (j *Journal) Append(ctx context.Context, recs ...*xframe.Record) error {
	if j.closed.Load() {
		return xframe.ErrJournalClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range recs {
		if r == nil {
			continue
		}
		idx := (j.start + j.n) % len(j.ring)
		j.ring[idx] = r
		if j.n < len(j.ring) {
			j.n++
		} else {
			j.start = (j.start + 1) % len(j.ring)
			j.evicted.Add(1)
		}
		j.appended.Add(1)
	}
	return nil
}

// Records returns retained records, oldest first.
func (j *Journal) Records() []*xframe.Record {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]*xframe.Record, 0, j.n)
	for i := 0; i < j.n; i++ {
		out = append(out, j.ring[(j.start+i)%len(j.ring)])
	}
	return out
}

// ByKind returns retained records of kind, oldest first.
func (j *Journal) ByKind(kind xframe.Kind) []*xframe.Record {
	var out []*xframe.Record
	for _, r := range j.Records() {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of retained records.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.n
}

// Close marks the journal closed. Retained records stay readable.
func (j *Journal) Close(_ context.Context) error {
	j.closed.Store(true)
	return nil
}

// Stats is journal telemetry.
type Stats struct {
	Appended uint64
	Evicted  uint64
	Retained int
}

// Stats returns current journal metrics.
func (j *Journal) Stats() Stats {
	return Stats{
		Appended: j.appended.Load(),
		Evicted:  j.evicted.Load(),
		Retained: j.Len(),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
