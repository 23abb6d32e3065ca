package xframe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(t *testing.T, n int) *Record {
	t.Helper()
	rec, err := NewRecord(nil, ping{N: n}, time.Now())
	require.NoError(t, err)
	return rec
}

func TestJournalWriter_BatchesInOrder(t *testing.T) {
	j := &fakeJournal{}
	w := NewJournalWriter(context.Background(), j, JournalWriterConfig{BatchSize: 4, FlushInterval: time.Hour})

	for i := 1; i <= 10; i++ {
		require.True(t, w.Enqueue(newRecord(t, i)))
	}
	require.NoError(t, w.Close(time.Second))

	recs := j.records()
	require.Len(t, recs, 10)
	for i, rec := range recs {
		p, err := Decode[ping](rec)
		require.NoError(t, err)
		assert.Equal(t, i+1, p.N)
	}
	assert.Equal(t, 3, j.appends, "4 + 4 + final flush of 2")

	s := w.Stats()
	assert.Equal(t, uint64(10), s.Enqueued)
	assert.Equal(t, uint64(10), s.Written)
	assert.True(t, j.closed)
}

func TestJournalWriter_FlushInterval(t *testing.T) {
	j := &fakeJournal{}
	w := NewJournalWriter(context.Background(), j, JournalWriterConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	defer w.Close(time.Second)

	w.Enqueue(newRecord(t, 1))
	assert.Eventually(t, func() bool { return len(j.records()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestJournalWriter_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	j := &fakeJournal{block: block}
	rec := &recorder{}
	w := NewJournalWriter(context.Background(), j, JournalWriterConfig{BufferSize: 1, BatchSize: 1, FlushInterval: time.Hour})
	w.AddObserver(rec)

	// The worker takes the first record and blocks in Append; the second
	// fills the buffer; anything after that is dropped.
	require.True(t, w.Enqueue(newRecord(t, 1)))
	assert.Eventually(t, func() bool { return w.Stats().Buffered == 0 }, time.Second, time.Millisecond)
	require.True(t, w.Enqueue(newRecord(t, 2)))
	assert.False(t, w.Enqueue(newRecord(t, 3)))

	s := w.Stats()
	assert.Equal(t, uint64(1), s.Dropped)
	e, ok := rec.last(JournalDropped)
	require.True(t, ok)
	assert.ErrorIs(t, e.Err, ErrJournalBufferFull)

	close(block)
	require.NoError(t, w.Close(time.Second))
	assert.Len(t, j.records(), 2)
}

func TestJournalWriter_AppendErrors(t *testing.T) {
	j := &fakeJournal{err: errors.New("disk full")}
	rec := &recorder{}
	w := NewJournalWriter(context.Background(), j, JournalWriterConfig{BatchSize: 2, FlushInterval: time.Hour})
	w.AddObserver(rec)

	w.Enqueue(newRecord(t, 1))
	w.Enqueue(newRecord(t, 2))
	require.NoError(t, w.Close(time.Second))

	assert.Equal(t, uint64(2), w.Stats().Failed)
	assert.Equal(t, uint64(0), w.Stats().Written)
	assert.Equal(t, 1, rec.count(JournalError))
}

func TestJournalWriter_Close(t *testing.T) {
	w := NewJournalWriter(context.Background(), &fakeJournal{}, JournalWriterConfig{})
	require.NoError(t, w.Close(time.Second))
	assert.ErrorIs(t, w.Close(time.Second), ErrJournalClosed)
	assert.False(t, w.Enqueue(newRecord(t, 1)))
	assert.False(t, w.Enqueue(nil))
}

func TestJournalWriter_CloseTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	j := &fakeJournal{block: block}
	w := NewJournalWriter(context.Background(), j, JournalWriterConfig{BatchSize: 1})

	w.Enqueue(newRecord(t, 1))
	assert.ErrorIs(t, w.Close(20*time.Millisecond), ErrJournalShutdownTimeout)
}

func TestJournalWriterConfig_Defaults(t *testing.T) {
	c := JournalWriterConfig{}.withDefaults()
	assert.Equal(t, 1024, c.BufferSize)
	assert.Equal(t, 64, c.BatchSize)
	assert.Equal(t, 100*time.Millisecond, c.FlushInterval)
	assert.Equal(t, 2*time.Second, c.WriteTimeout)
}
