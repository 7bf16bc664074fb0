// Package alert defines the closed set of alert kinds the detectors emit,
// their rendering, and the per-cycle aggregator.
package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindVolumeSpike     Kind = "volume_spike"
	KindPricePump       Kind = "price_pump"
	KindPriceDump       Kind = "price_dump"
	KindVolatilitySpike Kind = "volatility_spike"
	KindBreakoutUp      Kind = "breakout_up"
	KindBreakoutDown    Kind = "breakout_down"
)

// Kinds lists every alert kind in detector order.
var Kinds = []Kind{
	KindVolumeSpike, KindPricePump, KindPriceDump, KindVolatilitySpike, KindBreakoutUp, KindBreakoutDown,
}

// Alert is implemented only by the types of this package.
type Alert interface {
	Kind() Kind
	Symbol() string
	GeneratedAt() time.Time
	sealed()
}

type header struct {
	symbol string
	at     time.Time
}

func (h header) Symbol() string         { return h.symbol }
func (h header) GeneratedAt() time.Time { return h.at }
func (header) sealed()                  {}

// VolumeSpike: 24h volume grew by at least the configured multiple since the previous poll.
type VolumeSpike struct {
	header
	CurrentVolume  decimal.Decimal
	PreviousVolume decimal.Decimal
	ChangePct      decimal.Decimal
}

func NewVolumeSpike(symbol string, at time.Time, current, previous, changePct decimal.Decimal) VolumeSpike {
	return VolumeSpike{header: header{symbol, at}, CurrentVolume: current, PreviousVolume: previous, ChangePct: changePct}
}

func (VolumeSpike) Kind() Kind { return KindVolumeSpike }

// PriceMove carries the close-to-close comparison shared by pumps and dumps.
type PriceMove struct {
	CurrentPrice  decimal.Decimal
	PreviousPrice decimal.Decimal
	ChangePct     decimal.Decimal
	Timeframe     string
}

type PricePump struct {
	header
	PriceMove
}

func NewPricePump(symbol string, at time.Time, move PriceMove) PricePump {
	return PricePump{header: header{symbol, at}, PriceMove: move}
}

func (PricePump) Kind() Kind { return KindPricePump }

type PriceDump struct {
	header
	PriceMove
}

func NewPriceDump(symbol string, at time.Time, move PriceMove) PriceDump {
	return PriceDump{header: header{symbol, at}, PriceMove: move}
}

func (PriceDump) Kind() Kind { return KindPriceDump }

// VolatilitySpike: the newest candle's range reached the threshold. BaselinePct is
// the mean range of the preceding candles and is informational only.
type VolatilitySpike struct {
	header
	CurrentPct  decimal.Decimal
	BaselinePct decimal.Decimal
}

func NewVolatilitySpike(symbol string, at time.Time, current, baseline decimal.Decimal) VolatilitySpike {
	return VolatilitySpike{header: header{symbol, at}, CurrentPct: current, BaselinePct: baseline}
}

func (VolatilitySpike) Kind() Kind { return KindVolatilitySpike }

type BreakoutUp struct {
	header
	CurrentPrice decimal.Decimal
	Resistance   decimal.Decimal
	StrengthPct  decimal.Decimal
}

func NewBreakoutUp(symbol string, at time.Time, price, resistance, strength decimal.Decimal) BreakoutUp {
	return BreakoutUp{header: header{symbol, at}, CurrentPrice: price, Resistance: resistance, StrengthPct: strength}
}

func (BreakoutUp) Kind() Kind { return KindBreakoutUp }

type BreakoutDown struct {
	header
	CurrentPrice decimal.Decimal
	Support      decimal.Decimal
	StrengthPct  decimal.Decimal
}

func NewBreakoutDown(symbol string, at time.Time, price, support, strength decimal.Decimal) BreakoutDown {
	return BreakoutDown{header: header{symbol, at}, CurrentPrice: price, Support: support, StrengthPct: strength}
}

func (BreakoutDown) Kind() Kind { return KindBreakoutDown }
