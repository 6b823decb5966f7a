package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func series(n int) CandleSequence {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(CandleSequence, n)
	for i := range out {
		out[i] = Candle{
			Time:   start.Add(time.Duration(i) * 4 * time.Hour).Format("2006-01-02T15:04:05"),
			Open:   decimal.NewFromInt(int64(100 + i)),
			High:   decimal.NewFromInt(int64(101 + i)),
			Low:    decimal.NewFromInt(int64(99 + i)),
			Close:  decimal.NewFromInt(int64(100 + i)),
			Volume: decimal.NewFromInt(10),
		}
	}
	return out
}

func TestValidateSequence(t *testing.T) {
	if err := ValidateSequence(series(99)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("99 candles: expected ErrInsufficientData, got %v", err)
	}
	if err := ValidateSequence(series(100)); err != nil {
		t.Fatalf("100 candles: unexpected error %v", err)
	}
	if err := ValidateSequence(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("empty: expected ErrInsufficientData, got %v", err)
	}
}

func TestCheckOrder(t *testing.T) {
	s := series(5)
	if err := s.CheckOrder(); err != nil {
		t.Fatalf("ordered series rejected: %v", err)
	}

	s[3].Time = s[2].Time
	if err := s.CheckOrder(); !errors.Is(err, ErrCandleOrder) {
		t.Fatalf("duplicate time: expected ErrCandleOrder, got %v", err)
	}

	s = series(3)
	s[1].Time = "not a time"
	if err := s.CheckOrder(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTail(t *testing.T) {
	s := series(10)
	if got := s.Tail(4); len(got) != 4 || got[0].Time != s[6].Time {
		t.Fatalf("unexpected tail %v", got)
	}
	if got := s.Tail(50); len(got) != 10 {
		t.Fatalf("short sequence should be returned whole, got %d", len(got))
	}
}
