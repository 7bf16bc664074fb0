package bybit

import (
	"strconv"
	"time"
)

// Kline is one REST kline row. Prices stay as the exchange's decimal strings.
type Kline struct {
	Start    time.Time
	Interval KlineInterval
	Open     string
	High     string
	Low      string
	Close    string
	Volume   string
	Turnover string
}

// ParseKlineList converts Bybit REST kline rows, preserving their order.
// It stops at the first incomplete row or unparsable start time, so every
// returned kline keeps its position relative to the newest one.
func ParseKlineList(interval KlineInterval, raw [][]string) []Kline {
	out := make([]Kline, 0, len(raw))

	for _, row := range raw {
		if len(row) < 7 {
			break // incomplete row
		}

		start, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			break
		}

		out = append(out, Kline{
			Start:    time.UnixMilli(start),
			Interval: interval,
			Open:     row[1],
			High:     row[2],
			Low:      row[3],
			Close:    row[4],
			Volume:   row[5],
			Turnover: row[6],
		})
	}
	return out
}
