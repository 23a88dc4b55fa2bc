package store

import (
	"context"
	"sync"
)

// MemoryJournal keeps the most recent entries in a fixed-size ring.
// The default journal: cheap, bounded, good enough for a session's
// parity audit.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// DefaultMemoryJournalSize bounds the in-memory ring.
const DefaultMemoryJournalSize = 4096

// NewMemoryJournal creates a ring of the given capacity (<= 0 means
// DefaultMemoryJournalSize).
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = DefaultMemoryJournalSize
	}
	return &MemoryJournal{entries: make([]Entry, capacity)}
}

// Record appends an entry, overwriting the oldest once full.
func (j *MemoryJournal) Record(_ context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = entry
	j.next++
	if j.next == len(j.entries) {
		j.next = 0
		j.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *MemoryJournal) Recent(_ context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	size := j.next
	if j.full {
		size = len(j.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := j.next - 1 - i
		if idx < 0 {
			idx += len(j.entries)
		}
		out = append(out, j.entries[idx])
	}
	return out, nil
}

// Close is a no-op for the in-memory ring.
func (j *MemoryJournal) Close() error { return nil }

var _ Journal = (*MemoryJournal)(nil)
