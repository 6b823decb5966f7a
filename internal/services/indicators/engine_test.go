package indicators

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"CandleCast/internal/domain/models"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol %.6f)", label, got, want, tol)
	}
}

func candleTime(i int) string {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration(i) * 4 * time.Hour).Format("2006-01-02T15:04:05")
}

// build makes a 4h series from closes; volume defaults to 1.
func build(closes []float64, volumes map[int]float64) models.CandleSequence {
	seq := make(models.CandleSequence, len(closes))
	for i, c := range closes {
		v := 1.0
		if x, ok := volumes[i]; ok {
			v = x
		}
		d := decimal.NewFromFloat(c)
		seq[i] = models.Candle{
			Time:   candleTime(i),
			Open:   d,
			High:   d,
			Low:    d,
			Close:  d,
			Volume: decimal.NewFromFloat(v),
		}
	}
	return seq
}

func linear(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestWindowsFor(t *testing.T) {
	w := DefaultWindows()
	if w.Recent != 84 || w.Range != 42 || w.TopK != 5 {
		t.Fatalf("unexpected 4h windows %+v", w)
	}
	d := WindowsFor(24 * time.Hour)
	if d.Recent != 14 || d.Range != 7 {
		t.Fatalf("unexpected 1d windows %+v", d)
	}
	if iv, err := ParseInterval("4h"); err != nil || iv != 4*time.Hour {
		t.Fatalf("parse 4h: %v %v", iv, err)
	}
	if _, err := ParseInterval("7x"); err == nil {
		t.Fatalf("expected error for unknown interval")
	}
}

// Closes 100..199: SMA-n is the mean of the last n integers.
func TestAnalyzeLinearSeries(t *testing.T) {
	seq := build(linear(100, 100), nil)
	s := NewEngine(DefaultWindows()).Analyze(seq)

	assertClose(t, "last close", s.LastClose, 199, 0)
	assertClose(t, "sma14", s.GlobalSMA[14], 192.5, 0)
	assertClose(t, "sma20", s.GlobalSMA[20], 189.5, 0)
	assertClose(t, "sma50", s.GlobalSMA[50], 174.5, 0)
	assertClose(t, "sma100", s.GlobalSMA[100], 149.5, 0)
	if s.SMA14 == nil || *s.SMA14 != 192.5 {
		t.Fatalf("sma_14 field not populated: %v", s.SMA14)
	}
	if s.LatestTime != seq[99].Time {
		t.Fatalf("latest time %q, want %q", s.LatestTime, seq[99].Time)
	}

	if len(s.RecentWindow) != 84 || s.RecentWindow[0].Time != seq[16].Time {
		t.Fatalf("recent window should be candles 16..99, got %d starting %q", len(s.RecentWindow), s.RecentWindow[0].Time)
	}
	// The 7-day slice is candles 58..99.
	assertClose(t, "range max", s.RangeExtrema.Max, 199, 0)
	assertClose(t, "range min", s.RangeExtrema.Min, 158, 0)
	if s.RangeExtrema.MaxTime != seq[99].Time || s.RangeExtrema.MinTime != seq[58].Time {
		t.Fatalf("unexpected extrema times %+v", s.RangeExtrema)
	}
	assertClose(t, "avg volume", s.AvgVolume, 1, 0)
}

func TestAnalyzePerCandleSMAIsSparse(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 60000 + 1234.567*math.Sin(float64(i)/7)
	}
	seq := build(closes, nil)
	s := NewEngine(DefaultWindows()).Analyze(seq)

	if len(s.PerCandleSMA) != len(seq) {
		t.Fatalf("per-candle length %d, want %d", len(s.PerCandleSMA), len(seq))
	}
	for i, p := range s.PerCandleSMA {
		for _, n := range models.SMAWindows {
			v, ok := p.SMA(n)
			if i < n-1 {
				if ok {
					t.Fatalf("candle %d: SMA-%d should be undefined", i, n)
				}
				continue
			}
			if !ok {
				t.Fatalf("candle %d: SMA-%d missing", i, n)
			}
			var sum float64
			for _, c := range closes[i-n+1 : i+1] {
				sum += c
			}
			assertClose(t, "windowed mean", v, sum/float64(n), 0.005)
		}
	}
	if p := s.PerCandleSMA[13]; p.SMA14 == nil || p.SMA20 != nil || p.SMA50 != nil || p.SMA100 != nil {
		t.Fatalf("candle 13 should carry only SMA-14: %+v", p)
	}
}

func TestAnalyzeTopVolumesStableOnTies(t *testing.T) {
	volumes := map[int]float64{90: 7, 92: 9, 95: 9, 97: 7, 98: 9, 99: 2}
	seq := build(linear(100, 100), volumes)
	s := NewEngine(DefaultWindows()).Analyze(seq)

	want := []struct {
		idx int
		vol float64
	}{{92, 9}, {95, 9}, {98, 9}, {90, 7}, {97, 7}}
	if len(s.TopVolumes) != len(want) {
		t.Fatalf("got %d top volumes, want %d", len(s.TopVolumes), len(want))
	}
	for i, w := range want {
		got := s.TopVolumes[i]
		if got.Time != seq[w.idx].Time || got.Volume != w.vol {
			t.Fatalf("top[%d] = %+v, want candle %d volume %v", i, got, w.idx, w.vol)
		}
	}
}

func TestAnalyzeExtremaFirstOccurrence(t *testing.T) {
	closes := linear(100, 100)
	// Repeat the max and min inside the 7-day slice.
	closes[70], closes[80] = 500, 500
	closes[75], closes[85] = 10, 10
	seq := build(closes, nil)
	s := NewEngine(DefaultWindows()).Analyze(seq)

	if s.RangeExtrema.MaxTime != seq[70].Time {
		t.Fatalf("max time %q, want first occurrence %q", s.RangeExtrema.MaxTime, seq[70].Time)
	}
	if s.RangeExtrema.MinTime != seq[75].Time {
		t.Fatalf("min time %q, want first occurrence %q", s.RangeExtrema.MinTime, seq[75].Time)
	}
}

func TestAnalyzeShortSequenceUsesWholeWindow(t *testing.T) {
	seq := build(linear(30, 1), map[int]float64{0: 3})
	s := NewEngine(DefaultWindows()).Analyze(seq)

	if len(s.RecentWindow) != 30 {
		t.Fatalf("recent window %d, want 30", len(s.RecentWindow))
	}
	if _, ok := s.SMA(50); ok {
		t.Fatalf("SMA-50 must be undefined for 30 candles")
	}
	if s.SMA50 != nil || s.SMA100 != nil {
		t.Fatalf("long windows should be null")
	}
	// (3 + 29*1) / 30
	assertClose(t, "avg volume", s.AvgVolume, 1.07, 0)
}

func TestAnalyzeConstantClosesSMAExact(t *testing.T) {
	for _, c := range []float64{0.1, 0.07, 1.15, 70123.37, 99999.99} {
		closes := make([]float64, 100)
		for i := range closes {
			closes[i] = c
		}
		s := NewEngine(DefaultWindows()).Analyze(build(closes, nil))

		for _, n := range models.SMAWindows {
			if got := s.GlobalSMA[n]; got != c {
				t.Fatalf("close %v: global SMA-%d = %v", c, n, got)
			}
		}
		for i, p := range s.PerCandleSMA {
			for _, n := range models.SMAWindows {
				if v, ok := p.SMA(n); ok && v != c {
					t.Fatalf("close %v: candle %d SMA-%d = %v", c, i, n, v)
				}
			}
		}
	}
}

func TestAnalyzeTopVolumesShortSequence(t *testing.T) {
	seq := build([]float64{10, 11, 12}, map[int]float64{0: 4, 1: 6, 2: 5})
	s := NewEngine(DefaultWindows()).Analyze(seq)

	if len(s.TopVolumes) != 3 {
		t.Fatalf("top volumes %d, want 3", len(s.TopVolumes))
	}
	if s.TopVolumes[0].Time != candleTime(1) || s.TopVolumes[2].Time != candleTime(0) {
		t.Fatalf("unexpected order: %+v", s.TopVolumes)
	}
}

func TestPerCandleSMAJSONKeys(t *testing.T) {
	s := NewEngine(DefaultWindows()).Analyze(build(linear(20, 1), nil))
	b, err := json.Marshal(s.PerCandleSMA[19])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte(`"sma_14":`)) || !bytes.Contains(b, []byte(`"sma_20":`)) {
		t.Fatalf("row missing window keys: %s", b)
	}
	if bytes.Contains(b, []byte(`"sma":`)) || bytes.Contains(b, []byte(`"sma_50"`)) {
		t.Fatalf("row carries unexpected keys: %s", b)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	closes := make([]float64, 150)
	for i := range closes {
		closes[i] = 42000.13 + float64(i%17)*3.31
	}
	seq := build(closes, map[int]float64{140: 12.5, 141: 12.5})
	e := NewEngine(DefaultWindows())

	a, err := json.Marshal(e.Analyze(seq))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(e.Analyze(seq))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two runs over the same input differ")
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.675, 2.68},
		{-1.005, -1.01},
		{192.5, 192.5},
		{0.124, 0.12},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	s := NewEngine(DefaultWindows()).Analyze(nil)
	if s.LatestTime != "" || s.GlobalSMA != nil {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
