package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"perpscanner/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu      sync.Mutex
	adds    []string
	removes []string
	loaded  map[int64][]string
	err     error
}

func (m *memStore) AddSymbol(_ context.Context, id int64, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds = append(m.adds, fmt.Sprintf("%d:%s", id, symbol))
	return m.err
}

func (m *memStore) RemoveSymbol(_ context.Context, id int64, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes = append(m.removes, fmt.Sprintf("%d:%s", id, symbol))
	return m.err
}

func (m *memStore) LoadAll(context.Context) (map[int64][]string, error) {
	return m.loaded, m.err
}

func add(t *testing.T, r *Registry, id int64, text string) (Submission, error) {
	t.Helper()
	r.BeginAdd(id)
	require.Equal(t, AwaitingSymbol, r.State(id))
	return r.SubmitText(context.Background(), id, text)
}

// go test -v --run TestAddIsIdempotent
func TestAddIsIdempotent(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	sub, err := add(t, r, 1, "  btcusdt ")
	require.NoError(t, err)
	assert.Equal(t, Submission{Handled: true, Symbol: "BTCUSDT", Result: Added}, sub)
	assert.Equal(t, Idle, r.State(1))

	sub, err = add(t, r, 1, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, sub.Result)
	assert.Equal(t, []string{"BTCUSDT"}, r.Watchlist(1))
}

// go test -v --run TestInvalidInputResetsToIdle
func TestInvalidInputResetsToIdle(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	sub, err := add(t, r, 7, "ab")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.True(t, sub.Handled)
	assert.Equal(t, Idle, r.State(7))
	assert.Empty(t, r.Watchlist(7))

	// The next message is ordinary text, not a retry.
	sub, err = r.SubmitText(context.Background(), 7, "ETHUSDT")
	require.NoError(t, err)
	assert.False(t, sub.Handled)
	assert.Empty(t, r.Watchlist(7))
}

// go test -v --run TestNormalizeSymbol
func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: " btcusdt ", want: "BTCUSDT"},
		{in: "1000PEPEUSDT", want: "1000PEPEUSDT"},
		{in: "ab", wantErr: true},
		{in: "btc<usdt", wantErr: true},
		{in: "btc-27dec24", want: "BTC-27DEC24"},
		{in: "-BTCUSDT", wantErr: true},
		{in: "BTC USDT", wantErr: true},
		{in: strings.Repeat("A", MaxSymbolLen), want: strings.Repeat("A", MaxSymbolLen)},
		{in: strings.Repeat("A", MaxSymbolLen+1), wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeSymbol(tt.in)
		if tt.wantErr {
			assert.True(t, apperr.IsValidation(err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

// go test -v --run TestRemove
func TestRemove(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())
	_, err := add(t, r, 1, "SOLUSDT")
	require.NoError(t, err)

	assert.Equal(t, NotFound, r.Remove(context.Background(), 1, "BTCUSDT"))
	assert.Equal(t, Removed, r.Remove(context.Background(), 1, "solusdt"))
	assert.Equal(t, NotFound, r.Remove(context.Background(), 1, "SOLUSDT"))
	assert.Equal(t, NotFound, r.Remove(context.Background(), 99, "SOLUSDT"))
	assert.Empty(t, r.Watchlist(1))
}

// go test -v --run TestSubscribersOf
func TestSubscribersOf(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())
	for _, id := range []int64{30, 10, 20} {
		_, err := add(t, r, id, "BTCUSDT")
		require.NoError(t, err)
	}
	_, err := add(t, r, 40, "ETHUSDT")
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20, 30}, r.SubscribersOf("BTCUSDT"))
	assert.Empty(t, r.SubscribersOf("XRPUSDT"))
}

// go test -v --run TestConcurrentAdds
func TestConcurrentAdds(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	var wg sync.WaitGroup
	for id := int64(1); id <= 8; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				r.BeginAdd(id)
				_, _ = r.SubmitText(context.Background(), id, fmt.Sprintf("SYM%dUSDT", i))
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 8, r.Len())
	for id := int64(1); id <= 8; id++ {
		assert.Len(t, r.Watchlist(id), 25)
	}
	assert.Len(t, r.SubscribersOf("SYM0USDT"), 8)
}

// go test -v --run TestStoreWriteThrough
func TestStoreWriteThrough(t *testing.T) {
	store := &memStore{}
	r := NewRegistry(store, zap.NewNop())

	_, err := add(t, r, 5, "BTCUSDT")
	require.NoError(t, err)
	_, err = add(t, r, 5, "BTCUSDT")
	require.NoError(t, err)
	r.Remove(context.Background(), 5, "BTCUSDT")
	r.Remove(context.Background(), 5, "BTCUSDT")

	assert.Equal(t, []string{"5:BTCUSDT"}, store.adds)
	assert.Equal(t, []string{"5:BTCUSDT"}, store.removes)
}

// go test -v --run TestStoreFailureKeepsMemoryState
func TestStoreFailureKeepsMemoryState(t *testing.T) {
	r := NewRegistry(&memStore{err: errors.New("disk full")}, zap.NewNop())

	sub, err := add(t, r, 5, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, Added, sub.Result)
	assert.Equal(t, []string{"BTCUSDT"}, r.Watchlist(5))
}

// go test -v --run TestHydrate
func TestHydrate(t *testing.T) {
	store := &memStore{loaded: map[int64][]string{1: {"BTCUSDT", "ETHUSDT", "BAD<SYM>"}, 2: {"ETHUSDT"}}}
	r := NewRegistry(store, zap.NewNop())

	require.NoError(t, r.Hydrate(context.Background()))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, r.Watchlist(1))
	assert.Equal(t, []int64{1, 2}, r.SubscribersOf("ETHUSDT"))

	assert.NoError(t, NewRegistry(nil, zap.NewNop()).Hydrate(context.Background()))
}
