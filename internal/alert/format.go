package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// Render produces the Telegram HTML message for an alert.
func Render(a Alert) string {
	ts := a.GeneratedAt().UTC().Format(timeLayout)

	var b strings.Builder
	switch v := a.(type) {
	case VolumeSpike:
		fmt.Fprintf(&b, "🚨 <b>VOLUME SPIKE ALERT</b> 🚨\n\n")
		fmt.Fprintf(&b, "📊 <b>Symbol:</b> %s\n", v.Symbol())
		fmt.Fprintf(&b, "📈 <b>Volume Change:</b> +%s%%\n", v.ChangePct.StringFixed(1))
		fmt.Fprintf(&b, "💰 <b>Current Volume:</b> $%s\n", groupThousands(v.CurrentVolume))
		fmt.Fprintf(&b, "📊 <b>Previous Volume:</b> $%s\n", groupThousands(v.PreviousVolume))
	case PricePump:
		writePriceMove(&b, "🚀", "PUMP", v.Symbol(), v.PriceMove)
	case PriceDump:
		writePriceMove(&b, "📉", "DUMP", v.Symbol(), v.PriceMove)
	case VolatilitySpike:
		fmt.Fprintf(&b, "⚡ <b>VOLATILITY SPIKE ALERT</b> ⚡\n\n")
		fmt.Fprintf(&b, "💰 <b>Symbol:</b> %s\n", v.Symbol())
		fmt.Fprintf(&b, "📊 <b>Current Volatility:</b> %s%%\n", v.CurrentPct.StringFixed(2))
		fmt.Fprintf(&b, "📈 <b>Average Volatility:</b> %s%%\n", v.BaselinePct.StringFixed(2))
	case BreakoutUp:
		writeBreakout(&b, "⬆️", "UP", v.Symbol(), v.CurrentPrice, v.Resistance, v.StrengthPct)
	case BreakoutDown:
		writeBreakout(&b, "⬇️", "DOWN", v.Symbol(), v.CurrentPrice, v.Support, v.StrengthPct)
	default:
		// Alert is sealed; a new kind must be added above.
		panic(fmt.Sprintf("alert: unhandled alert type %T", a))
	}

	fmt.Fprintf(&b, "\n⏰ <b>Time:</b> %s", ts)
	return b.String()
}

func writePriceMove(b *strings.Builder, emoji, action, symbol string, m PriceMove) {
	fmt.Fprintf(b, "%s <b>%s ALERT</b> %s\n\n", emoji, action, emoji)
	fmt.Fprintf(b, "💰 <b>Symbol:</b> %s\n", symbol)
	fmt.Fprintf(b, "💵 <b>Price Change (%s):</b> %s%%\n", m.Timeframe, signed(m.ChangePct, 2))
	fmt.Fprintf(b, "📈 <b>Current Price:</b> $%s\n", m.CurrentPrice.StringFixed(6))
	fmt.Fprintf(b, "📊 <b>Previous Price:</b> $%s\n", m.PreviousPrice.StringFixed(6))
}

func writeBreakout(b *strings.Builder, emoji, direction, symbol string, price, level, strength decimal.Decimal) {
	fmt.Fprintf(b, "%s <b>BREAKOUT ALERT</b> %s\n\n", emoji, emoji)
	fmt.Fprintf(b, "💰 <b>Symbol:</b> %s\n", symbol)
	fmt.Fprintf(b, "📊 <b>Direction:</b> %s\n", direction)
	fmt.Fprintf(b, "💵 <b>Current Price:</b> $%s\n", price.StringFixed(6))
	fmt.Fprintf(b, "🎯 <b>Breakout Level:</b> $%s\n", level.StringFixed(6))
	fmt.Fprintf(b, "💪 <b>Strength:</b> %s%%\n", strength.StringFixed(2))
}

// StartupInfo describes the running configuration for the startup notice.
type StartupInfo struct {
	ScanInterval time.Duration
	MinVolume24h decimal.Decimal
	StartedAt    time.Time
}

func RenderStartup(info StartupInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 <b>Bybit Scanner Bot Started</b> 🤖\n\n")
	fmt.Fprintf(&b, "✅ <b>Status:</b> Online and monitoring\n")
	fmt.Fprintf(&b, "📊 <b>Scanning:</b> Perpetual futures\n")
	fmt.Fprintf(&b, "⏱️ <b>Interval:</b> Every %d seconds\n", int(info.ScanInterval.Seconds()))
	fmt.Fprintf(&b, "🎯 <b>Filters:</b> Volume ≥ $%s\n\n", groupThousands(info.MinVolume24h))
	fmt.Fprintf(&b, "⏰ <b>Started:</b> %s", info.StartedAt.UTC().Format(timeLayout))
	return b.String()
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.Sign() >= 0 {
		return "+" + s
	}
	return s
}

// groupThousands renders d rounded to an integer with comma separators.
func groupThousands(d decimal.Decimal) string {
	s := d.StringFixed(0)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}
