package xframe

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one dispatched message as written to a Journal.
type Record struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Codec      string    `json:"codec"`
	Payload    []byte    `json:"payload"`
	ProducedAt time.Time `json:"produced_at"`
	Delivered  bool      `json:"delivered"` // at least one listener ran
	Consumed   bool      `json:"consumed"`  // a listener stopped dispatch
}

// NewRecord encodes msg with c into a fresh Record stamped at.
func NewRecord(c Codec, msg Message, at time.Time) (*Record, error) {
	if c == nil {
		c = JSONCodec{}
	}
	data, err := c.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:         uuid.NewString(),
		Kind:       msg.Kind(),
		Codec:      c.Name(),
		Payload:    data,
		ProducedAt: at,
	}, nil
}

// JournalFactory constructs journals from a config blob.
type JournalFactory func(cfg map[string]any) (Journal, error)

var (
	journalRegistryMu sync.RWMutex
	journalRegistry   = map[string]JournalFactory{}
)

// RegisterJournal registers a journal backend.
func RegisterJournal(name string, factory JournalFactory) error {
	if name == "" {
		return errors.New("journal name must not be empty")
	}
	if factory == nil {
		return errors.New("journal factory must not be nil")
	}
	journalRegistryMu.Lock()
	journalRegistry[name] = factory
	journalRegistryMu.Unlock()
	return nil
}

// NewJournal constructs a journal by name with config.
func NewJournal(name string, cfg map[string]any) (Journal, error) {
	journalRegistryMu.RLock()
	f, ok := journalRegistry[name]
	journalRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownJournal{name: name}
	}
	return f(cfg)
}
