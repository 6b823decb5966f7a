package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"CandleCast/pkg/util"
)

// MinCandles is the smallest sequence the analyst will summarise; it equals
// the largest SMA window.
const MinCandles = 100

// Candle is one OHLCV bucket. Quantities travel as decimal strings.
type Candle struct {
	Time   string          `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// OpenTime parses Time. Zone-less values are UTC.
func (c Candle) OpenTime() (time.Time, error) {
	t, ok := util.ParseTime(c.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid candle time %q", c.Time)
	}
	return t, nil
}

// CandleSequence is ordered oldest first.
type CandleSequence []Candle

func (s CandleSequence) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

func (s CandleSequence) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume.InexactFloat64()
	}
	return out
}

// Last returns the most recent candle. The sequence must not be empty.
func (s CandleSequence) Last() Candle {
	return s[len(s)-1]
}

// Tail returns the trailing n candles, or the whole sequence when shorter.
func (s CandleSequence) Tail(n int) CandleSequence {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// CheckOrder verifies that open times parse and strictly increase.
func (s CandleSequence) CheckOrder() error {
	var prev time.Time
	for i, c := range s {
		t, err := c.OpenTime()
		if err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if i > 0 && !t.After(prev) {
			return fmt.Errorf("%w: candle %d at %s does not follow %s", ErrCandleOrder, i, c.Time, s[i-1].Time)
		}
		prev = t
	}
	return nil
}

// ValidateSequence gates analysis on having at least MinCandles candles.
func ValidateSequence(s CandleSequence) error {
	if len(s) < MinCandles {
		return fmt.Errorf("%w: got %d candles, need %d", ErrInsufficientData, len(s), MinCandles)
	}
	return nil
}
