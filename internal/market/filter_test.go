package market

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setUniverse map[string]struct{}

func (u setUniverse) Contains(s string) bool {
	_, ok := u[s]
	return ok
}

func (u setUniverse) Len() int { return len(u) }

func snap(symbol string, price, volume float64) Snapshot {
	return Snapshot{
		Symbol:    symbol,
		LastPrice: decimal.NewFromFloat(price),
		Volume24h: decimal.NewFromFloat(volume),
	}
}

func TestFilterSnapshots(t *testing.T) {
	cfg := NewFilterConfig(1_000_000, 0.001, 100_000)

	input := []Snapshot{
		snap("AAAUSDT", 1, 1_000_000),       // volume exactly at minimum
		snap("BBBUSDT", 1, 999_999),         // too little volume
		snap("CCCUSDT", 0.001, 5_000_000),   // price exactly at minimum
		snap("DDDUSDT", 0.0009, 5_000_000),  // too cheap
		snap("EEEUSDT", 100_000, 5_000_000), // price exactly at maximum
		snap("FFFUSDT", 100_001, 5_000_000), // too expensive
		snap("", 1, 5_000_000),
	}

	got := FilterSnapshots(input, cfg, nil)
	symbols := lo.Map(got, func(s Snapshot, _ int) string { return s.Symbol })
	assert.Equal(t, []string{"AAAUSDT", "CCCUSDT", "EEEUSDT"}, symbols)
}

func TestFilterSnapshotsUniverse(t *testing.T) {
	cfg := NewFilterConfig(0, 0, 1_000_000)
	input := []Snapshot{snap("BTCUSDT", 1, 1), snap("BTC-27DEC24", 1, 1), snap("ETHUSDT", 1, 1)}

	got := FilterSnapshots(input, cfg, setUniverse{"BTCUSDT": {}, "ETHUSDT": {}})
	require.Len(t, got, 2)
	assert.Equal(t, "ETHUSDT", got[1].Symbol)

	// An empty universe means the instrument list is unknown: do not drop everything.
	assert.Len(t, FilterSnapshots(input, cfg, setUniverse{}), 3)
}

func TestFilterSnapshotsKeepsDatedFutures(t *testing.T) {
	cfg := NewFilterConfig(1_000_000, 0.001, 100_000)
	input := []Snapshot{snap("BTC-27DEC24", 65_000, 5_000_000), snap("BTCUSDT", 65_000, 5_000_000)}

	// Without a universe only the volume and price bounds apply.
	got := FilterSnapshots(input, cfg, nil)
	assert.Equal(t, []string{"BTC-27DEC24", "BTCUSDT"}, lo.Map(got, func(s Snapshot, _ int) string { return s.Symbol }))
}

func TestCapPrefix(t *testing.T) {
	input := []Snapshot{snap("A", 1, 1), snap("B", 1, 1), snap("C", 1, 1)}
	assert.Len(t, CapPrefix(input, 2), 2)
	assert.Equal(t, "B", CapPrefix(input, 2)[1].Symbol)
	assert.Len(t, CapPrefix(input, 50), 3)
	assert.Len(t, CapPrefix(input, 0), 3)
}

func TestParseSnapshot(t *testing.T) {
	now := time.Now()

	s, err := ParseSnapshot("BTCUSDT", "65000.5", "1234.5", "0.0123", now)
	require.NoError(t, err)
	assert.True(t, s.Price24hChangePct.Equal(decimal.RequireFromString("1.23")))
	assert.Equal(t, now, s.ObservedAt)

	_, err = ParseSnapshot("BTCUSDT", "abc", "1", "0", now)
	assert.Error(t, err)
	_, err = ParseSnapshot("BTCUSDT", "1", "", "0", now)
	assert.Error(t, err)
}

func TestParseCandle(t *testing.T) {
	c, err := ParseCandle(time.UnixMilli(0), "1", "2", "0.5", "1.5", "10")
	require.NoError(t, err)
	assert.True(t, c.High.Equal(decimal.NewFromInt(2)))

	_, err = ParseCandle(time.UnixMilli(0), "1", "x", "0.5", "1.5", "10")
	assert.ErrorContains(t, err, "high")
}
