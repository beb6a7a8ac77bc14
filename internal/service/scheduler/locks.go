package scheduler

import "sync"

// occurrenceLocks serializes transitions per occurrence id while letting
// different occurrences proceed in parallel. Entries are reference-counted
// so the map does not grow with every occurrence ever seen.
type occurrenceLocks struct {
	// mu guards the entries map.
	mu sync.Mutex
	// entries maps occurrence id to its lock entry.
	entries map[string]*lockEntry
}

// lockEntry is one per-occurrence mutex with its waiter count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// newOccurrenceLocks returns an empty lock table.
func newOccurrenceLocks() *occurrenceLocks {
	return &occurrenceLocks{
		entries: map[string]*lockEntry{},
	}
}

// lock acquires the mutex for the given id and returns its release func.
func (l *occurrenceLocks) lock(id string) func() {
	l.mu.Lock()

	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}

	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()

		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}

		l.mu.Unlock()
	}
}
