package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"perpscanner/config"
	"perpscanner/internal/alert"
	"perpscanner/internal/bybit/memorystore"
	"perpscanner/internal/detector"
	"perpscanner/internal/market"
	"perpscanner/internal/notify"
	"perpscanner/pkg/bybit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeExchange struct {
	mu         sync.Mutex
	snapshots  []market.Snapshot
	candles    map[string][]market.Candle
	snapErr    error
	candleErr  map[string]error
	panicOn    string
	candleHits []string
	onCandles  func(symbol string)
}

func (f *fakeExchange) GetSnapshots(context.Context) ([]market.Snapshot, error) {
	return f.snapshots, f.snapErr
}

func (f *fakeExchange) GetCandles(_ context.Context, symbol string, _ bybit.KlineInterval, _ int) ([]market.Candle, error) {
	f.mu.Lock()
	f.candleHits = append(f.candleHits, symbol)
	f.mu.Unlock()

	if f.onCandles != nil {
		f.onCandles(symbol)
	}
	if symbol == f.panicOn {
		panic("unexpected payload")
	}
	if err := f.candleErr[symbol]; err != nil {
		return nil, err
	}
	return f.candles[symbol], nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	batches  [][]alert.Alert
	startups []string
	sent     int64
}

func (f *fakeDispatcher) Dispatch(_ context.Context, alerts []alert.Alert) notify.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, alerts)
	f.sent += int64(len(alerts))
	return notify.Report{Alerts: len(alerts), Delivered: len(alerts)}
}

func (f *fakeDispatcher) SendStartup(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startups = append(f.startups, text)
	return nil
}

func (f *fakeDispatcher) AlertsSent() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

// panickingDispatcher fails outside per-symbol isolation on every cycle.
type panickingDispatcher struct {
	fakeDispatcher
	attempts atomic.Int32
}

func (p *panickingDispatcher) Dispatch(context.Context, []alert.Alert) notify.Report {
	p.attempts.Add(1)
	panic("transport exploded")
}

func snap(symbol, price, volume string) market.Snapshot {
	return market.Snapshot{Symbol: symbol, LastPrice: d(price), Volume24h: d(volume), ObservedAt: time.Now()}
}

func candle(high, low, closePrice string) market.Candle {
	return market.Candle{High: d(high), Low: d(low), Close: d(closePrice)}
}

func repeat(n int, c market.Candle) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func testOptions() Options {
	return Options{
		Filter:         market.NewFilterConfig(0, 0.001, 100_000),
		MaxSymbols:     50,
		CandleInterval: bybit.Interval1Min,
		CandleLimit:    60,
		ScanInterval:   5 * time.Millisecond,
		ErrorBackoff:   5 * time.Millisecond,
	}
}

func testPipeline() *detector.Pipeline {
	return detector.NewPipeline(detector.NewConfig(config.ScannerConfig{
		VolumeSpikeThreshold:    2.0,
		PricePumpThresholdPct:   5.0,
		PriceDumpThresholdPct:   -5.0,
		VolatilityThresholdPct:  10.0,
		BreakoutLookbackPeriods: 20,
		CandleInterval:          "1",
	}))
}

// fixture: AAA spikes in volume and volatility, BBB pumps, CCC breaks support.
func fixture() (*fakeExchange, *memorystore.SnapshotStore) {
	volatile := repeat(10, candle("101", "99", "100"))
	volatile[0] = candle("112", "100", "100")

	ex := &fakeExchange{
		snapshots: []market.Snapshot{
			snap("AAAUSDT", "100", "3000000"),
			snap("BBBUSDT", "105", "500000"),
			snap("CCCUSDT", "98", "800000"),
		},
		candles: map[string][]market.Candle{
			"AAAUSDT": volatile,
			"BBBUSDT": {candle("105", "105", "105"), candle("104", "104", "104"), candle("103", "103", "103"),
				candle("102", "102", "102"), candle("100", "100", "100")},
			"CCCUSDT": repeat(20, candle("110", "100", "105")),
		},
	}

	store := memorystore.NewSnapshotStore()
	store.PutAll([]market.Snapshot{snap("AAAUSDT", "100", "1000000")})
	return ex, store
}

type kindOf struct {
	Symbol string
	Kind   alert.Kind
}

func kinds(alerts []alert.Alert) []kindOf {
	out := make([]kindOf, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, kindOf{a.Symbol(), a.Kind()})
	}
	return out
}

// go test -v --run TestRunCycleEndToEnd
func TestRunCycleEndToEnd(t *testing.T) {
	ex, store := fixture()
	disp := &fakeDispatcher{}
	e := New(ex, store, testPipeline(), disp, testOptions(), zap.NewNop())

	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []kindOf{
		{"AAAUSDT", alert.KindVolumeSpike},
		{"AAAUSDT", alert.KindVolatilitySpike},
		{"BBBUSDT", alert.KindPricePump},
		{"CCCUSDT", alert.KindBreakoutDown},
	}, kinds(rep.Alerts))
	assert.Equal(t, 3, rep.Scanned)
	assert.NotEmpty(t, rep.ID)

	require.Len(t, disp.batches, 1)
	assert.Equal(t, kinds(rep.Alerts), kinds(disp.batches[0]))
	assert.EqualValues(t, 4, e.AlertsSent())

	last, ok := e.LastCycle()
	require.True(t, ok)
	assert.Equal(t, rep.ID, last.ID)
}

// go test -v --run TestRunCycleOverwritesStateUnconditionally
func TestRunCycleOverwritesStateUnconditionally(t *testing.T) {
	ex, store := fixture()
	ex.candleErr = map[string]error{"BBBUSDT": errors.New("timeout")}
	e := New(ex, store, testPipeline(), &fakeDispatcher{}, testOptions(), zap.NewNop())

	_, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	for _, want := range ex.snapshots {
		got, ok := store.Get(want.Symbol)
		require.True(t, ok, want.Symbol)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, e.TrackedSymbols())

	// Same data again: the volume baseline moved, so AAA no longer spikes.
	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, kinds(rep.Alerts), kindOf{"AAAUSDT", alert.KindVolumeSpike})
}

// go test -v --run TestRunCycleCandleFailureSkipsCandleDetectors
func TestRunCycleCandleFailureSkipsCandleDetectors(t *testing.T) {
	ex, store := fixture()
	ex.candleErr = map[string]error{"AAAUSDT": errors.New("rate limited")}
	e := New(ex, store, testPipeline(), &fakeDispatcher{}, testOptions(), zap.NewNop())

	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []kindOf{
		{"AAAUSDT", alert.KindVolumeSpike},
		{"BBBUSDT", alert.KindPricePump},
		{"CCCUSDT", alert.KindBreakoutDown},
	}, kinds(rep.Alerts))
}

// go test -v --run TestRunCyclePanicIsIsolated
func TestRunCyclePanicIsIsolated(t *testing.T) {
	ex, store := fixture()
	ex.panicOn = "BBBUSDT"
	e := New(ex, store, testPipeline(), &fakeDispatcher{}, testOptions(), zap.NewNop())

	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, []kindOf{
		{"AAAUSDT", alert.KindVolumeSpike},
		{"AAAUSDT", alert.KindVolatilitySpike},
		{"CCCUSDT", alert.KindBreakoutDown},
	}, kinds(rep.Alerts))

	_, ok := store.Get("BBBUSDT")
	assert.True(t, ok)
}

// go test -v --run TestRunCycleFetchFailure
func TestRunCycleFetchFailure(t *testing.T) {
	ex := &fakeExchange{snapErr: errors.New("502 bad gateway")}
	disp := &fakeDispatcher{}
	e := New(ex, memorystore.NewSnapshotStore(), testPipeline(), disp, testOptions(), zap.NewNop())

	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Scanned)
	assert.Empty(t, ex.candleHits)
	assert.Empty(t, disp.batches)
}

// go test -v --run TestRunCycleCapsAndFilters
func TestRunCycleCapsAndFilters(t *testing.T) {
	ex := &fakeExchange{snapshots: []market.Snapshot{
		snap("AUSDT", "1", "10"),
		snap("BUSDT", "0.0001", "10"), // below min price
		snap("CUSDT", "1", "10"),
		snap("DUSDT", "1", "10"),
	}}
	opts := testOptions()
	opts.MaxSymbols = 2
	e := New(ex, memorystore.NewSnapshotStore(), testPipeline(), &fakeDispatcher{}, opts, zap.NewNop())

	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Eligible)
	assert.Equal(t, []string{"AUSDT", "CUSDT"}, ex.candleHits)
}

// go test -v --run TestRunCycleStopFinishesDispatch
func TestRunCycleStopFinishesDispatch(t *testing.T) {
	ex, store := fixture()
	opts := testOptions()
	opts.SymbolDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	disp := &fakeDispatcher{}
	e := New(ex, store, testPipeline(), disp, opts, zap.NewNop())
	rep, err := e.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Scanned)
	require.Len(t, disp.batches, 1)
	assert.Len(t, disp.batches[0], 2)
}

// go test -v --run TestRunUntilStopped
func TestRunUntilStopped(t *testing.T) {
	ex, store := fixture()
	disp := &fakeDispatcher{}
	opts := testOptions()
	opts.AnnounceStartup = true
	e := New(ex, store, testPipeline(), disp, opts, zap.NewNop())
	assert.Equal(t, StateIdle, e.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := e.LastCycle()
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Equal(t, StateStopped, e.State())

	disp.mu.Lock()
	defer disp.mu.Unlock()
	require.Len(t, disp.startups, 1)
	assert.Contains(t, disp.startups[0], "Scanner Bot Started")
}

// go test -v --run TestRunSurvivesFailingCycles
func TestRunSurvivesFailingCycles(t *testing.T) {
	ex := &fakeExchange{snapErr: errors.New("down")}
	e := New(ex, memorystore.NewSnapshotStore(), testPipeline(), &fakeDispatcher{}, testOptions(), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, e.Run(ctx))
	assert.Equal(t, StateStopped, e.State())
}

// go test -v --run TestRunCyclePanicUsesErrorBackoff
func TestRunCyclePanicUsesErrorBackoff(t *testing.T) {
	ex, store := fixture()
	disp := &panickingDispatcher{}
	opts := testOptions()
	opts.ScanInterval = time.Hour
	opts.ErrorBackoff = 5 * time.Millisecond
	e := New(ex, store, testPipeline(), disp, opts, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	assert.NoError(t, e.Run(ctx))
	assert.Equal(t, StateStopped, e.State())
	// One hour scan interval: only the short backoff allows repeated cycles.
	assert.GreaterOrEqual(t, disp.attempts.Load(), int32(3))

	// Snapshots are committed before the failing dispatch.
	assert.Equal(t, 3, store.Len())
}

// go test -v --run TestRunCycleCommitsStateAtOnce
func TestRunCycleCommitsStateAtOnce(t *testing.T) {
	ex, store := fixture()
	var seen []int
	ex.onCandles = func(string) { seen = append(seen, store.Len()) }
	e := New(ex, store, testPipeline(), &fakeDispatcher{}, testOptions(), zap.NewNop())

	_, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	// Mid-cycle readers see only the pre-cycle entry.
	assert.Equal(t, []int{1, 1, 1}, seen)
	assert.Equal(t, 3, store.Len())
}

// go test -v --run TestOptionsFromConfigScansAllLinear
func TestOptionsFromConfigScansAllLinear(t *testing.T) {
	opts := OptionsFromConfig(config.ScannerConfig{MinVolume24h: 1_000_000, MaxPrice: 100_000, MaxSymbolsPerCycle: 50})
	assert.Nil(t, opts.Universe)
	assert.Equal(t, 50, opts.MaxSymbols)
}
