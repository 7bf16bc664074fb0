// Package detector holds the pure anomaly detectors run against one symbol's
// current snapshot, previous snapshot and candle window.
package detector

import (
	"fmt"

	"perpscanner/config"
	"perpscanner/pkg/bybit"

	"github.com/shopspring/decimal"
)

// DefaultBreakoutBuffer is the 0.1% noise band around support and resistance.
var DefaultBreakoutBuffer = decimal.RequireFromString("0.001")

const (
	priceWindow      = 5
	volatilityWindow = 10
)

type Config struct {
	VolumeSpikeMultiplier  decimal.Decimal
	PumpThresholdPct       decimal.Decimal
	DumpThresholdPct       decimal.Decimal // negative
	VolatilityThresholdPct decimal.Decimal
	BreakoutLookback       int
	BreakoutBuffer         decimal.Decimal

	// Timeframe labels the span the price detector compares, e.g. "5min".
	Timeframe string
}

func NewConfig(sc config.ScannerConfig) Config {
	minutes := 1
	if meta, err := bybit.ParseKlineInterval(sc.CandleInterval); err == nil {
		minutes = meta.Minutes
	}

	return Config{
		VolumeSpikeMultiplier:  decimal.NewFromFloat(sc.VolumeSpikeThreshold),
		PumpThresholdPct:       decimal.NewFromFloat(sc.PricePumpThresholdPct),
		DumpThresholdPct:       decimal.NewFromFloat(sc.PriceDumpThresholdPct),
		VolatilityThresholdPct: decimal.NewFromFloat(sc.VolatilityThresholdPct),
		BreakoutLookback:       sc.BreakoutLookbackPeriods,
		BreakoutBuffer:         DefaultBreakoutBuffer,
		Timeframe:              fmt.Sprintf("%dmin", priceWindow*minutes),
	}
}
