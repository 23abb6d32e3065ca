package xframe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// JournalWriterConfig controls batching of journal writes.
type JournalWriterConfig struct {
	// BufferSize is the number of records that may wait for the worker (default 1024).
	BufferSize int `yaml:"buffer_size"`
	// BatchSize is the number of records per Append (default 64).
	BatchSize int `yaml:"batch_size"`
	// FlushInterval bounds how long a partial batch waits (default 100ms).
	FlushInterval time.Duration `yaml:"flush_interval"`
	// WriteTimeout bounds every Append (default 2s).
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (c JournalWriterConfig) withDefaults() JournalWriterConfig {
	if c.BufferSize < 1 {
		c.BufferSize = 1024
	}
	if c.BatchSize < 1 {
		c.BatchSize = 64
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	return c
}

// JournalWriter moves records from the frame thread to a Journal on a
// background worker. Enqueue never blocks: when the buffer is full the record
// is dropped and counted.
type JournalWriter struct {
	journal Journal
	cfg     JournalWriterConfig

	recCh  chan *Record
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	observers *observerSet

	enqueued atomic.Uint64
	written  atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

// JournalStats is a snapshot of writer telemetry.
type JournalStats struct {
	Enqueued   uint64 `json:"enqueued"`
	Written    uint64 `json:"written"`
	Dropped    uint64 `json:"dropped"` // buffer full
	Failed     uint64 `json:"failed"`  // Append errors
	Buffered   int    `json:"buffered"`
	BufferSize int    `json:"buffer_size"`
}

// NewJournalWriter starts a writer for j.
func NewJournalWriter(ctx context.Context, j Journal, cfg JournalWriterConfig) *JournalWriter {
	cfg = cfg.withDefaults()
	wctx, cancel := context.WithCancel(ctx)
	w := &JournalWriter{
		journal:   j,
		cfg:       cfg,
		recCh:     make(chan *Record, cfg.BufferSize),
		ctx:       wctx,
		cancel:    cancel,
		observers: &observerSet{},
	}
	w.wg.Add(1)
	go w.worker()
	return w
}

// Enqueue hands rec to the worker. It returns false if the writer is closed or
// the buffer is full.
func (w *JournalWriter) Enqueue(rec *Record) bool {
	if rec == nil || w.closed.Load() {
		return false
	}
	select {
	case w.recCh <- rec:
		w.enqueued.Add(1)
		return true
	default:
		w.dropped.Add(1)
		w.observers.notify(Event{Type: JournalDropped, Kind: rec.Kind, Err: ErrJournalBufferFull})
		return false
	}
}

func (w *JournalWriter) worker() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Record, 0, w.cfg.BatchSize)
	for {
		select {
		case <-w.ctx.Done():
			// Flush whatever is still buffered before exiting.
			for {
				select {
				case rec := <-w.recCh:
					batch = append(batch, rec)
					if len(batch) >= w.cfg.BatchSize {
						batch = w.flush(batch)
					}
				default:
					w.flush(batch)
					return
				}
			}
		case rec := <-w.recCh:
			batch = append(batch, rec)
			if len(batch) >= w.cfg.BatchSize {
				batch = w.flush(batch)
			}
		case <-ticker.C:
			batch = w.flush(batch)
		}
	}
}

// flush writes batch and returns it emptied for reuse.
func (w *JournalWriter) flush(batch []*Record) []*Record {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	defer cancel()

	if err := w.journal.Append(ctx, batch...); err != nil {
		w.failed.Add(uint64(len(batch)))
		w.observers.notify(Event{Type: JournalError, Count: len(batch), Err: err})
	} else {
		w.written.Add(uint64(len(batch)))
	}
	for i := range batch {
		batch[i] = nil
	}
	return batch[:0]
}

// Close stops accepting records, flushes the buffer within timeout and closes
// the journal. Later calls return ErrJournalClosed.
func (w *JournalWriter) Close(timeout time.Duration) error {
	if w.closed.Swap(true) {
		return ErrJournalClosed
	}
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return ErrJournalShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return w.journal.Close(ctx)
}

// AddObserver registers an observer for journal notices.
func (w *JournalWriter) AddObserver(obs Observer) { w.observers.add(obs) }

// Stats returns current writer statistics.
func (w *JournalWriter) Stats() JournalStats {
	return JournalStats{
		Enqueued:   w.enqueued.Load(),
		Written:    w.written.Load(),
		Dropped:    w.dropped.Load(),
		Failed:     w.failed.Load(),
		Buffered:   len(w.recCh),
		BufferSize: cap(w.recCh),
	}
}
