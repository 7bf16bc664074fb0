package engine

import (
	"time"

	"perpscanner/config"
	"perpscanner/internal/market"
	"perpscanner/internal/observability"
	"perpscanner/pkg/bybit"
)

type Options struct {
	Filter     market.FilterConfig
	Universe   market.Universe // set only when scanner.perpetuals_only is on
	MaxSymbols int

	CandleInterval bybit.KlineInterval
	CandleLimit    int

	ScanInterval time.Duration
	SymbolDelay  time.Duration
	ErrorBackoff time.Duration

	// AnnounceStartup sends a one-off message to the broadcast chat before the first cycle.
	AnnounceStartup bool

	Metrics *observability.Metrics
}

func OptionsFromConfig(sc config.ScannerConfig) Options {
	return Options{
		Filter:          market.NewFilterConfig(sc.MinVolume24h, sc.MinPrice, sc.MaxPrice),
		MaxSymbols:      sc.MaxSymbolsPerCycle,
		CandleInterval:  bybit.KlineInterval(sc.CandleInterval),
		CandleLimit:     sc.CandleLimit,
		ScanInterval:    sc.ScanInterval(),
		SymbolDelay:     sc.SymbolDelay,
		ErrorBackoff:    sc.ErrorBackoff,
		AnnounceStartup: true,
	}
}
