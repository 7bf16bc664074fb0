package memorystore

import (
	"fmt"
	"sync"
	"testing"

	"perpscanner/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestSnapshotStoreOverwrite
func TestSnapshotStoreOverwrite(t *testing.T) {
	store := NewSnapshotStore()

	_, ok := store.Get("BTCUSDT")
	assert.False(t, ok)

	store.PutAll([]market.Snapshot{{Symbol: "BTCUSDT", Volume24h: decimal.NewFromInt(1)}})
	store.PutAll([]market.Snapshot{{Symbol: "BTCUSDT", Volume24h: decimal.NewFromInt(2)}})

	got, ok := store.Get("BTCUSDT")
	require.True(t, ok)
	assert.True(t, got.Volume24h.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, store.Len())

	store.PutAll(nil)
	assert.Equal(t, 1, store.Len())
}

// go test -v --run TestSnapshotStoreBatchIsAtomic
func TestSnapshotStoreBatchIsAtomic(t *testing.T) {
	store := NewSnapshotStore()
	batch := make([]market.Snapshot, 50)
	for i := range batch {
		batch[i] = market.Snapshot{Symbol: fmt.Sprintf("S%dUSDT", i)}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.PutAll(batch)
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				n := store.Len()
				assert.True(t, n == 0 || n == len(batch), "partial batch visible: %d", n)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(batch), store.Len())
}

// go test -v --run TestInstrumentStoreReplace
func TestInstrumentStoreReplace(t *testing.T) {
	store := NewInstrumentStore()
	assert.Equal(t, 0, store.Len())

	store.Replace([]market.Instrument{{Symbol: "ETHUSDT"}, {Symbol: "BTCUSDT"}})
	assert.True(t, store.Contains("BTCUSDT"))
	assert.Equal(t, 2, store.Len())

	store.Replace([]market.Instrument{{Symbol: "SOLUSDT"}})
	assert.False(t, store.Contains("BTCUSDT"))
	assert.Equal(t, 1, store.Len())
}

var _ market.Universe = (*InstrumentStore)(nil)
