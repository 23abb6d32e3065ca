package xframe

import (
	"errors"
	"fmt"
)

type ErrUnknownJournal struct{ name string }

func (e ErrUnknownJournal) Error() string { return fmt.Sprintf("unknown journal: %s", e.name) }

var (
	// ErrNotPooled is returned when despawning an instance no pool currently has active.
	ErrNotPooled = errors.New("xframe: instance not managed by pool")

	ErrWorldClosed            = errors.New("xframe: world is closed")
	ErrInvalidConfig          = errors.New("xframe: invalid config")
	ErrNoJournal              = errors.New("xframe: no journal configured")
	ErrJournalClosed          = errors.New("xframe: journal writer is closed")
	ErrJournalBufferFull      = errors.New("xframe: journal buffer full")
	ErrJournalShutdownTimeout = errors.New("xframe: journal writer shutdown timeout")
)
