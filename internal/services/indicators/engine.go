package indicators

import (
	"sort"

	"github.com/shopspring/decimal"

	"CandleCast/internal/domain/models"
)

// Engine turns a candle sequence into a Summary. It holds no state between
// calls and is safe for concurrent use.
type Engine struct {
	w Windows
}

func NewEngine(w Windows) *Engine {
	return &Engine{w: w}
}

func (e *Engine) Windows() Windows {
	return e.w
}

// Analyze summarises seq. Callers gate on models.ValidateSequence first;
// an empty sequence yields the zero Summary.
func (e *Engine) Analyze(seq models.CandleSequence) models.Summary {
	if len(seq) == 0 {
		return models.Summary{}
	}

	closes := seq.Closes()
	last := seq.Last()

	s := models.Summary{
		LatestTime:   last.Time,
		LastClose:    round2(closes[len(closes)-1]),
		GlobalSMA:    make(map[int]float64, len(e.w.SMA)),
		PerCandleSMA: perCandleSMA(seq, closes, e.w.SMA),
	}
	for _, n := range e.w.SMA {
		if n > 0 && n <= len(closes) {
			s.GlobalSMA[n] = round2(mean(closes[len(closes)-n:]))
		}
	}
	s.SMA14 = lookup(s.GlobalSMA, 14)
	s.SMA20 = lookup(s.GlobalSMA, 20)
	s.SMA50 = lookup(s.GlobalSMA, 50)
	s.SMA100 = lookup(s.GlobalSMA, 100)

	recent := seq.Tail(e.w.Recent)
	s.RecentWindow = append(models.CandleSequence(nil), recent...)
	s.RangeExtrema = extrema(recent.Tail(e.w.Range))
	s.TopVolumes = topByVolume(recent, e.w.TopK)
	s.AvgVolume = round2(mean(recent.Volumes()))
	return s
}

// perCandleSMA computes each window as a direct sum over its candles so the
// values match the definition exactly.
func perCandleSMA(seq models.CandleSequence, closes []float64, windows []int) []models.SMAPoint {
	out := make([]models.SMAPoint, len(seq))
	for i, c := range seq {
		p := models.SMAPoint{Time: c.Time, Close: round2(closes[i])}
		for _, n := range windows {
			if n <= 0 || i < n-1 {
				continue
			}
			p.SetSMA(n, round2(mean(closes[i-n+1 : i+1])))
		}
		out[i] = p
	}
	return out
}

// extrema scans oldest first; on ties the earliest candle wins.
func extrema(seq models.CandleSequence) models.RangeExtrema {
	if len(seq) == 0 {
		return models.RangeExtrema{}
	}
	hi, lo := 0, 0
	for i := 1; i < len(seq); i++ {
		if seq[i].Close.GreaterThan(seq[hi].Close) {
			hi = i
		}
		if seq[i].Close.LessThan(seq[lo].Close) {
			lo = i
		}
	}
	return models.RangeExtrema{
		Max:     round2(seq[hi].Close.InexactFloat64()),
		MaxTime: seq[hi].Time,
		Min:     round2(seq[lo].Close.InexactFloat64()),
		MinTime: seq[lo].Time,
	}
}

// topByVolume keeps chronological order among equal volumes.
func topByVolume(seq models.CandleSequence, k int) []models.VolumePoint {
	idx := make([]int, len(seq))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return seq[idx[a]].Volume.GreaterThan(seq[idx[b]].Volume)
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	out := make([]models.VolumePoint, len(idx))
	for i, j := range idx {
		out[i] = models.VolumePoint{
			Volume: round2(seq[j].Volume.InexactFloat64()),
			Time:   seq[j].Time,
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// round2 rounds half away from zero on the shortest decimal form of x.
func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

func lookup(m map[int]float64, n int) *float64 {
	v, ok := m[n]
	if !ok {
		return nil
	}
	return &v
}
