package memorystore

import (
	"sync"

	"perpscanner/internal/market"
)

// InstrumentStore is the current set of tradable perpetual symbols. It is
// replaced wholesale on every refresh.
type InstrumentStore struct {
	mu      sync.RWMutex
	symbols map[string]market.Instrument
}

func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		symbols: make(map[string]market.Instrument),
	}
}

func (s *InstrumentStore) Replace(instruments []market.Instrument) {
	next := make(map[string]market.Instrument, len(instruments))
	for _, inst := range instruments {
		next[inst.Symbol] = inst
	}

	s.mu.Lock()
	s.symbols = next
	s.mu.Unlock()
}

func (s *InstrumentStore) Contains(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.symbols[symbol]
	return ok
}

func (s *InstrumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
