package detector

import (
	"time"

	"perpscanner/internal/alert"
	"perpscanner/internal/market"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Input is everything the detectors see for one symbol in one cycle.
// Candles are ordered newest first and may be shorter than any detector needs.
type Input struct {
	Current  market.Snapshot
	Previous *market.Snapshot // nil on first sighting
	Candles  []market.Candle
	Now      time.Time
}

// Detector returns at most one alert. It abstains rather than errors when its
// inputs are insufficient.
type Detector func(in Input, cfg Config) (alert.Alert, bool)

// VolumeSpike compares 24h volume against the previous poll.
func VolumeSpike(in Input, cfg Config) (alert.Alert, bool) {
	if in.Previous == nil || !in.Previous.Volume24h.IsPositive() {
		return nil, false
	}
	prev := in.Previous.Volume24h
	cur := in.Current.Volume24h

	change := pctChange(cur, prev)
	if change.LessThan(cfg.VolumeSpikeMultiplier.Mul(hundred)) {
		return nil, false
	}
	return alert.NewVolumeSpike(in.Current.Symbol, in.Now, cur, prev, change), true
}

// PriceMove compares the newest close to the fifth-newest close. Pump is
// checked before dump; at most one fires.
func PriceMove(in Input, cfg Config) (alert.Alert, bool) {
	if len(in.Candles) < priceWindow {
		return nil, false
	}
	now := in.Candles[0].Close
	then := in.Candles[priceWindow-1].Close
	if !then.IsPositive() {
		return nil, false
	}

	move := alert.PriceMove{
		CurrentPrice:  now,
		PreviousPrice: then,
		ChangePct:     pctChange(now, then),
		Timeframe:     cfg.Timeframe,
	}
	switch {
	case move.ChangePct.GreaterThanOrEqual(cfg.PumpThresholdPct):
		return alert.NewPricePump(in.Current.Symbol, in.Now, move), true
	case move.ChangePct.LessThanOrEqual(cfg.DumpThresholdPct):
		return alert.NewPriceDump(in.Current.Symbol, in.Now, move), true
	}
	return nil, false
}

// Volatility fires on the newest candle's range alone. The baseline is the
// mean range of the nine candles before it and does not affect firing.
func Volatility(in Input, cfg Config) (alert.Alert, bool) {
	if len(in.Candles) < volatilityWindow {
		return nil, false
	}

	ranges := make([]decimal.Decimal, 0, volatilityWindow)
	for _, c := range in.Candles[:volatilityWindow] {
		if !c.Close.IsPositive() {
			return nil, false
		}
		ranges = append(ranges, c.High.Sub(c.Low).Div(c.Close).Mul(hundred))
	}

	current := ranges[0]
	if current.LessThan(cfg.VolatilityThresholdPct) {
		return nil, false
	}
	baseline := decimal.Sum(ranges[1], ranges[2:]...).Div(decimal.NewFromInt(int64(len(ranges) - 1)))
	return alert.NewVolatilitySpike(in.Current.Symbol, in.Now, current, baseline), true
}

// Breakout tests the last price against the lookback window's extremes
// widened by the buffer. The comparison is strict.
func Breakout(in Input, cfg Config) (alert.Alert, bool) {
	lookback := cfg.BreakoutLookback
	if lookback < 1 || len(in.Candles) < lookback {
		return nil, false
	}

	window := in.Candles[:lookback]
	resistance := window[0].High
	support := window[0].Low
	for _, c := range window[1:] {
		resistance = decimal.Max(resistance, c.High)
		support = decimal.Min(support, c.Low)
	}

	price := in.Current.LastPrice
	one := decimal.NewFromInt(1)

	if resistance.IsPositive() && price.GreaterThan(resistance.Mul(one.Add(cfg.BreakoutBuffer))) {
		strength := price.Sub(resistance).Div(resistance).Mul(hundred)
		return alert.NewBreakoutUp(in.Current.Symbol, in.Now, price, resistance, strength), true
	}
	if support.IsPositive() && price.LessThan(support.Mul(one.Sub(cfg.BreakoutBuffer))) {
		strength := support.Sub(price).Div(support).Mul(hundred)
		return alert.NewBreakoutDown(in.Current.Symbol, in.Now, price, support, strength), true
	}
	return nil, false
}

func pctChange(cur, prev decimal.Decimal) decimal.Decimal {
	return cur.Sub(prev).Div(prev).Mul(hundred)
}
