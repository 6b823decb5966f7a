package narrative

import (
	"fmt"
	"strings"

	"CandleCast/internal/domain/models"
)

// DefaultRecentCandles is how many of the latest candles are quoted raw.
const DefaultRecentCandles = 12

// BuildPrompt renders a Summary as the user message for the narrative
// service. The last recent candles of the 14-day window are quoted raw.
func BuildPrompt(s models.Summary, recent int) string {
	symbol := s.Symbol
	if symbol == "" {
		symbol = "BTCUSDT"
	}
	interval := s.Interval
	if interval == "" {
		interval = "4h"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyse %s using %s candles and give a forecast.\n\n", symbol, interval)
	fmt.Fprintf(&b, "Latest candle: %s\n", s.LatestTime)
	fmt.Fprintf(&b, "Last close: %s\n\n", price(s.LastClose))

	b.WriteString("Simple moving averages:\n")
	for _, n := range models.SMAWindows {
		if v, ok := s.SMA(n); ok {
			fmt.Fprintf(&b, "- SMA-%d: %s\n", n, price(v))
		} else {
			fmt.Fprintf(&b, "- SMA-%d: n/a\n", n)
		}
	}

	r := s.RangeExtrema
	b.WriteString("\n7-day range:\n")
	fmt.Fprintf(&b, "- High: %s at %s\n", price(r.Max), r.MaxTime)
	fmt.Fprintf(&b, "- Low: %s at %s\n", price(r.Min), r.MinTime)
	fmt.Fprintf(&b, "\n14-day average volume: %s BTC\n", price(s.AvgVolume))
	if s.Volatility > 0 {
		fmt.Fprintf(&b, "14-day realized volatility (annualized): %s%%\n", price(s.Volatility))
	}

	b.WriteString("\nHighest volumes over 14 days:\n")
	for _, v := range s.TopVolumes {
		fmt.Fprintf(&b, " - %s BTC at %s\n", price(v.Volume), v.Time)
	}

	tail := s.RecentWindow.Tail(recent)
	if recent > 0 && len(tail) > 0 {
		fmt.Fprintf(&b, "\nLast %d candles:\n", len(tail))
		for _, c := range tail {
			fmt.Fprintf(&b, "%s O: %s H: %s L: %s C: %s V: %s\n",
				c.Time, c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String())
		}
	}

	b.WriteString(`
Please provide:
1. A short market summary.
2. Key support and resistance levels.
3. A volatility assessment.
4. A forecast for the next 3 days.
5. Trading recommendations.
`)
	return b.String()
}

func price(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
