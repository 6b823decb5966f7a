package features

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const year = 365 * 24 * time.Hour

// LogReturns computes r_t = ln(C_t / C_{t-1}). It returns nil for fewer than
// two closes. Non-positive prices yield a zero return.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample standard deviation of the
// last window returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear is how many candles of the given interval fit in a year.
func BarsPerYear(interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(year) / float64(interval)
}

// VolatilityPercent is the annualized realized volatility of closes in
// percent, rounded to 2 decimal places.
func VolatilityPercent(closes []float64, interval time.Duration) float64 {
	rets := LogReturns(closes)
	v := RealizedVolatility(rets, len(rets), BarsPerYear(interval))
	return decimal.NewFromFloat(v * 100).Round(2).InexactFloat64()
}
