// Package engine runs the scan loop: fetch snapshots, filter, detect per
// symbol, update the state store, and dispatch the cycle's alerts.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"perpscanner/internal/alert"
	"perpscanner/internal/detector"
	"perpscanner/internal/market"
	"perpscanner/internal/notify"
	"perpscanner/internal/observability"
	"perpscanner/pkg/bybit"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Exchange is the market data source.
type Exchange interface {
	GetSnapshots(ctx context.Context) ([]market.Snapshot, error)
	GetCandles(ctx context.Context, symbol string, interval bybit.KlineInterval, limit int) ([]market.Candle, error)
}

// Dispatcher delivers a cycle's alerts.
type Dispatcher interface {
	Dispatch(ctx context.Context, alerts []alert.Alert) notify.Report
	SendStartup(ctx context.Context, text string) error
	AlertsSent() int64
}

// SnapshotStore holds the previous snapshot per symbol. The engine is its
// only writer and commits a cycle's snapshots in one PutAll call.
type SnapshotStore interface {
	Get(symbol string) (market.Snapshot, bool)
	PutAll(snaps []market.Snapshot)
	Len() int
}

// CycleReport describes one Running iteration.
type CycleReport struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration

	Fetched  int
	Eligible int
	Scanned  int
	Failed   int

	Alerts   []alert.Alert
	Delivery notify.Report
}

type Engine struct {
	exchange   Exchange
	store      SnapshotStore
	pipeline   *detector.Pipeline
	dispatcher Dispatcher
	opts       Options
	logger     *zap.Logger
	metrics    *observability.Metrics

	state     atomic.Int32
	startedAt time.Time
	lastCycle atomic.Pointer[CycleReport]
	now       func() time.Time
}

func New(exchange Exchange, store SnapshotStore, pipeline *detector.Pipeline, dispatcher Dispatcher,
	opts Options, logger *zap.Logger) *Engine {
	e := &Engine{
		exchange:   exchange,
		store:      store,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.Named("engine"),
		metrics:    opts.Metrics,
		now:        time.Now,
	}
	e.startedAt = e.now()
	return e
}

func (e *Engine) Name() string { return "scan-loop" }

func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) AlertsSent() int64 { return e.dispatcher.AlertsSent() }

func (e *Engine) TrackedSymbols() int { return e.store.Len() }

func (e *Engine) StartedAt() time.Time { return e.startedAt }

// LastCycle returns the most recent completed cycle, if any.
func (e *Engine) LastCycle() (CycleReport, bool) {
	rep := e.lastCycle.Load()
	if rep == nil {
		return CycleReport{}, false
	}
	return *rep, true
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	e.metrics.SetEngineState(int(s))
}

// Run loops until ctx is cancelled. Transient failures never end the loop;
// a failed cycle is followed by the error backoff instead of the scan interval.
func (e *Engine) Run(ctx context.Context) error {
	defer e.setState(StateStopped)
	e.setState(StateRunning)

	e.logger.Info("scanner started",
		zap.Duration("interval", e.opts.ScanInterval),
		zap.Int("max_symbols", e.opts.MaxSymbols),
		zap.String("candle_interval", string(e.opts.CandleInterval)))

	if e.opts.AnnounceStartup {
		e.announce(ctx)
	}

	for ctx.Err() == nil {
		e.setState(StateRunning)

		wait := e.opts.ScanInterval
		if _, err := e.safeCycle(ctx); err != nil {
			e.logger.Error("scan cycle failed, backing off", zap.Duration("backoff", e.opts.ErrorBackoff), zap.Error(err))
			wait = e.opts.ErrorBackoff
		}

		if ctx.Err() != nil {
			break
		}
		e.setState(StateSleeping)
		if !sleep(ctx, wait) {
			break
		}
	}

	e.logger.Info("scanner stopped", zap.Int64("alerts_sent", e.AlertsSent()))
	return nil
}

func (e *Engine) announce(ctx context.Context) {
	text := alert.RenderStartup(alert.StartupInfo{
		ScanInterval: e.opts.ScanInterval,
		MinVolume24h: e.opts.Filter.MinVolume24h,
		StartedAt:    e.startedAt,
	})
	if err := e.dispatcher.SendStartup(ctx, text); err != nil {
		e.logger.Warn("startup message not delivered", zap.Error(err))
	}
}

func (e *Engine) safeCycle(ctx context.Context) (rep CycleReport, err error) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			e.metrics.RecordCycle("panic", e.now().Sub(start))
		}
	}()
	return e.RunCycle(ctx)
}

// RunCycle performs one Running iteration. A stop signal ends the symbol loop
// early, but the symbol in progress and the dispatch of collected alerts
// still complete.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	rep := CycleReport{ID: uuid.NewString(), StartedAt: e.now()}
	log := e.logger.With(zap.String("cycle_id", rep.ID))

	snapshots, err := e.exchange.GetSnapshots(ctx)
	if err != nil {
		log.Warn("snapshot fetch failed, skipping cycle", zap.Error(err))
		e.finish(&rep, "fetch_failed")
		return rep, nil
	}
	rep.Fetched = len(snapshots)
	if len(snapshots) == 0 {
		log.Warn("no ticker data received")
		e.finish(&rep, "no_data")
		return rep, nil
	}

	eligible := market.CapPrefix(market.FilterSnapshots(snapshots, e.opts.Filter, e.opts.Universe), e.opts.MaxSymbols)
	rep.Eligible = len(eligible)
	log.Info("scanning symbols", zap.Int("fetched", rep.Fetched), zap.Int("eligible", rep.Eligible))

	// In-flight work is not interrupted by the stop signal.
	work := context.WithoutCancel(ctx)
	agg := alert.NewAggregator()

	// Snapshots are staged and committed together before dispatch. The
	// deferred commit covers a panic in between.
	staged := make([]market.Snapshot, 0, len(eligible))
	committed := false
	commit := func() {
		if !committed {
			committed = true
			e.store.PutAll(staged)
		}
	}
	defer commit()

	for i, snap := range eligible {
		if ctx.Err() != nil {
			log.Info("stop requested, ending scan early", zap.Int("scanned", rep.Scanned))
			break
		}
		if i > 0 && !sleep(ctx, e.opts.SymbolDelay) {
			continue // the loop head observes the stop
		}

		staged = append(staged, snap)
		alerts, err := e.processSymbol(work, log, snap)
		if err != nil {
			rep.Failed++
			e.metrics.RecordSymbolFailure("panic")
			log.Error("symbol processing failed, skipping", zap.String("symbol", snap.Symbol), zap.Error(err))
			continue
		}
		rep.Scanned++
		agg.Add(alerts...)
	}

	commit()

	rep.Alerts = agg.Alerts()
	for _, a := range rep.Alerts {
		e.metrics.RecordAlert(string(a.Kind()))
	}
	if len(rep.Alerts) > 0 {
		rep.Delivery = e.dispatcher.Dispatch(work, rep.Alerts)
	}

	e.finish(&rep, "ok")
	log.Info("scan cycle complete",
		zap.Int("scanned", rep.Scanned),
		zap.Int("failed", rep.Failed),
		zap.Int("alerts", len(rep.Alerts)),
		zap.Any("by_kind", agg.CountByKind()),
		zap.Int("delivered", rep.Delivery.Delivered),
		zap.Duration("took", rep.Duration))
	return rep, nil
}

// processSymbol evaluates one symbol against its previous snapshot. The
// caller stages the snapshot whether or not an alert fires, and even when
// evaluation panics.
func (e *Engine) processSymbol(ctx context.Context, log *zap.Logger, snap market.Snapshot) (alerts []alert.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alerts, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	in := detector.Input{Current: snap, Now: e.now()}
	if prev, ok := e.store.Get(snap.Symbol); ok {
		in.Previous = &prev
	}

	candles, cerr := e.exchange.GetCandles(ctx, snap.Symbol, e.opts.CandleInterval, e.opts.CandleLimit)
	if cerr != nil {
		// Candle detectors abstain on an empty window.
		e.metrics.RecordSymbolFailure("kline")
		log.Warn("candle fetch failed", zap.String("symbol", snap.Symbol), zap.Error(cerr))
		candles = nil
	}
	in.Candles = candles

	return e.pipeline.Evaluate(in), nil
}

func (e *Engine) finish(rep *CycleReport, outcome string) {
	rep.Duration = e.now().Sub(rep.StartedAt)
	e.metrics.RecordCycle(outcome, rep.Duration)
	e.metrics.SetTrackedSymbols(e.store.Len())

	snapshot := *rep
	e.lastCycle.Store(&snapshot)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
