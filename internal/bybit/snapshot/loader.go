// Package snapshot adapts the Bybit REST client to the market types the
// scanner consumes.
package snapshot

import (
	"context"
	"time"

	"perpscanner/internal/apperr"
	"perpscanner/internal/market"
	"perpscanner/pkg/bybit"

	"go.uber.org/zap"
)

// Client is the subset of *bybit.RESTClient the loader uses.
type Client interface {
	GetInstruments(ctx context.Context, category bybit.Category) ([]bybit.Instrument, error)
	GetTickers(ctx context.Context, category bybit.Category, symbol string) ([]bybit.Ticker, error)
	GetKlines(ctx context.Context, category bybit.Category, symbol string, interval bybit.KlineInterval, limit int) ([]bybit.Kline, error)
}

type Loader struct {
	client   Client
	category bybit.Category
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewLoader(client Client, category bybit.Category, timeout time.Duration, logger *zap.Logger) *Loader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		client:   client,
		category: category,
		timeout:  timeout,
		logger:   logger.Named("snapshot"),
		now:      time.Now,
	}
}

// ListInstruments returns the perpetual contracts currently in Trading status.
func (l *Loader) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.client.GetInstruments(ctx, l.category)
	if err != nil {
		return nil, &apperr.DataFetchError{Op: "instruments", Err: err}
	}

	out := make([]market.Instrument, 0, len(raw))
	for _, inst := range raw {
		if inst.ContractType != bybit.ContractLinearPerpetual || inst.Status != bybit.StatusTrading {
			continue
		}
		out = append(out, market.Instrument{
			Symbol:       inst.Symbol,
			ContractType: inst.ContractType,
			Status:       inst.Status,
		})
	}
	l.logger.Info("loaded instruments", zap.Int("total", len(raw)), zap.Int("perpetual", len(out)))
	return out, nil
}

// GetSnapshots fetches 24h statistics for the whole category. Tickers with
// malformed numeric fields are dropped individually.
func (l *Loader) GetSnapshots(ctx context.Context) ([]market.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tickers, err := l.client.GetTickers(ctx, l.category, "")
	if err != nil {
		return nil, &apperr.DataFetchError{Op: "tickers", Err: err}
	}

	observedAt := l.now()
	out := make([]market.Snapshot, 0, len(tickers))
	dropped := 0
	for _, t := range tickers {
		snap, err := market.ParseSnapshot(t.Symbol, t.LastPrice, t.Volume24h, t.Price24hPcnt, observedAt)
		if err != nil {
			dropped++
			l.logger.Debug("dropping malformed ticker", zap.String("symbol", t.Symbol), zap.Error(err))
			continue
		}
		out = append(out, snap)
	}
	if dropped > 0 {
		l.logger.Warn("malformed tickers dropped", zap.Int("count", dropped))
	}
	return out, nil
}

// GetCandles returns up to limit candles for symbol, newest first.
func (l *Loader) GetCandles(ctx context.Context, symbol string, interval bybit.KlineInterval, limit int) ([]market.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	klines, err := l.client.GetKlines(ctx, l.category, symbol, interval, limit)
	if err != nil {
		return nil, &apperr.DataFetchError{Op: "kline", Symbol: symbol, Err: err}
	}

	out := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := market.ParseCandle(k.Start, k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			// A gap would shift every positional comparison; return what is
			// contiguous so detectors abstain on a short window.
			l.logger.Warn("malformed kline", zap.String("symbol", symbol), zap.Error(err))
			break
		}
		out = append(out, c)
	}
	return out, nil
}
