package memorystore

import (
	"sync"

	"perpscanner/internal/market"
)

// SnapshotStore holds the last observed snapshot per symbol. Entries for
// symbols that stop qualifying are retained indefinitely.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]market.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]market.Snapshot),
	}
}

// PutAll overwrites the entry of every given snapshot in one critical
// section, so readers see either none or all of a cycle's updates.
func (s *SnapshotStore) PutAll(snaps []market.Snapshot) {
	if len(snaps) == 0 {
		return
	}
	s.mu.Lock()
	for _, snap := range snaps {
		s.data[snap.Symbol] = snap
	}
	s.mu.Unlock()
}

// Get returns the previous snapshot for symbol, if one was stored.
func (s *SnapshotStore) Get(symbol string) (market.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[symbol]
	return snap, ok
}

func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
