// Package market holds the value types the scanner reasons about and the
// symbol eligibility filter.
package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is a symbol's 24h statistics at one poll. Never mutated after creation.
type Snapshot struct {
	Symbol            string
	LastPrice         decimal.Decimal
	Volume24h         decimal.Decimal
	Price24hChangePct decimal.Decimal
	ObservedAt        time.Time
}

// ParseSnapshot builds a Snapshot from exchange decimal strings. pcnt is a
// fraction ("0.0123"), stored as a percent. An empty pcnt is treated as zero.
func ParseSnapshot(symbol, lastPrice, volume24h, pcnt string, observedAt time.Time) (Snapshot, error) {
	if symbol == "" {
		return Snapshot{}, fmt.Errorf("empty symbol")
	}
	price, err := decimal.NewFromString(lastPrice)
	if err != nil {
		return Snapshot{}, fmt.Errorf("lastPrice %q: %w", lastPrice, err)
	}
	volume, err := decimal.NewFromString(volume24h)
	if err != nil {
		return Snapshot{}, fmt.Errorf("volume24h %q: %w", volume24h, err)
	}
	change := decimal.Zero
	if pcnt != "" {
		frac, err := decimal.NewFromString(pcnt)
		if err != nil {
			return Snapshot{}, fmt.Errorf("price24hPcnt %q: %w", pcnt, err)
		}
		change = frac.Mul(hundred)
	}

	return Snapshot{
		Symbol:            symbol,
		LastPrice:         price,
		Volume24h:         volume,
		Price24hChangePct: change,
		ObservedAt:        observedAt,
	}, nil
}

// Candle is one OHLC aggregate. A window of candles is ordered newest first.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// ParseCandle builds a Candle from exchange decimal strings.
func ParseCandle(openTime time.Time, open, high, low, closePrice, volume string) (Candle, error) {
	c := Candle{OpenTime: openTime}
	var err error
	if c.Open, err = parseField("open", open); err != nil {
		return Candle{}, err
	}
	if c.High, err = parseField("high", high); err != nil {
		return Candle{}, err
	}
	if c.Low, err = parseField("low", low); err != nil {
		return Candle{}, err
	}
	if c.Close, err = parseField("close", closePrice); err != nil {
		return Candle{}, err
	}
	if c.Volume, err = parseField("volume", volume); err != nil {
		return Candle{}, err
	}
	return c, nil
}

func parseField(name, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", name, raw, err)
	}
	return v, nil
}

// Instrument is a tradable contract of the scanned category.
type Instrument struct {
	Symbol       string
	ContractType string
	Status       string
}
