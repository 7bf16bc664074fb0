package market

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// FilterConfig bounds the symbols worth analyzing.
type FilterConfig struct {
	MinVolume24h decimal.Decimal
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
}

func NewFilterConfig(minVolume24h, minPrice, maxPrice float64) FilterConfig {
	return FilterConfig{
		MinVolume24h: decimal.NewFromFloat(minVolume24h),
		MinPrice:     decimal.NewFromFloat(minPrice),
		MaxPrice:     decimal.NewFromFloat(maxPrice),
	}
}

// Universe is the set of symbols known to be tradable perpetuals.
type Universe interface {
	Contains(symbol string) bool
	Len() int
}

// Eligible reports volume24h >= min AND minPrice <= lastPrice <= maxPrice.
func Eligible(s Snapshot, cfg FilterConfig) bool {
	return s.Volume24h.GreaterThanOrEqual(cfg.MinVolume24h) &&
		s.LastPrice.GreaterThanOrEqual(cfg.MinPrice) &&
		s.LastPrice.LessThanOrEqual(cfg.MaxPrice)
}

// FilterSnapshots keeps eligible snapshots in their original order. A nil or
// empty universe disables the perpetual-membership check.
func FilterSnapshots(snapshots []Snapshot, cfg FilterConfig, universe Universe) []Snapshot {
	checkUniverse := universe != nil && universe.Len() > 0

	return lo.Filter(snapshots, func(s Snapshot, _ int) bool {
		if s.Symbol == "" {
			return false
		}
		if checkUniverse && !universe.Contains(s.Symbol) {
			return false
		}
		return Eligible(s, cfg)
	})
}

// CapPrefix returns at most max leading snapshots.
func CapPrefix(snapshots []Snapshot, max int) []Snapshot {
	if max <= 0 || len(snapshots) <= max {
		return snapshots
	}
	return snapshots[:max]
}
