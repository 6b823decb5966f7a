package models

// SMAWindows are the simple moving average lengths, in candles.
var SMAWindows = []int{14, 20, 50, 100}

// Summary is the analyst's output. Every float is rounded to 2 decimals.
type Summary struct {
	Symbol     string  `json:"symbol,omitempty"`
	Interval   string  `json:"interval,omitempty"`
	LatestTime string  `json:"latest_time"`
	LastClose  float64 `json:"last_close"`

	SMA14  *float64 `json:"sma_14"`
	SMA20  *float64 `json:"sma_20"`
	SMA50  *float64 `json:"sma_50"`
	SMA100 *float64 `json:"sma_100"`
	// GlobalSMA holds the same values keyed by window, for any window set.
	GlobalSMA map[int]float64 `json:"global_sma"`

	PerCandleSMA []SMAPoint     `json:"sma_data"`
	RecentWindow CandleSequence `json:"raw_data_14d"`
	RangeExtrema RangeExtrema   `json:"price_range_7d"`
	TopVolumes   []VolumePoint  `json:"top_volumes"`
	AvgVolume    float64        `json:"avg_volume_14d"`
	// Volatility is the annualized realized volatility of the recent window
	// closes, in percent.
	Volatility float64 `json:"realized_volatility_14d,omitempty"`
}

// SMA returns the global SMA for window n.
func (s Summary) SMA(n int) (float64, bool) {
	v, ok := s.GlobalSMA[n]
	return v, ok
}

// SMAPoint carries one candle's close and the windows defined at it.
type SMAPoint struct {
	Time   string   `json:"time"`
	Close  float64  `json:"close"`
	SMA14  *float64 `json:"sma_14,omitempty"`
	SMA20  *float64 `json:"sma_20,omitempty"`
	SMA50  *float64 `json:"sma_50,omitempty"`
	SMA100 *float64 `json:"sma_100,omitempty"`
}

func (p *SMAPoint) slot(n int) **float64 {
	switch n {
	case 14:
		return &p.SMA14
	case 20:
		return &p.SMA20
	case 50:
		return &p.SMA50
	case 100:
		return &p.SMA100
	}
	return nil
}

// SMA reports the value for window n, if it is defined at this candle.
func (p SMAPoint) SMA(n int) (float64, bool) {
	s := p.slot(n)
	if s == nil || *s == nil {
		return 0, false
	}
	return **s, true
}

// SetSMA stores v for window n. It reports false for windows outside
// SMAWindows.
func (p *SMAPoint) SetSMA(n int, v float64) bool {
	s := p.slot(n)
	if s == nil {
		return false
	}
	*s = &v
	return true
}

type RangeExtrema struct {
	Max     float64 `json:"max"`
	MaxTime string  `json:"max_time"`
	Min     float64 `json:"min"`
	MinTime string  `json:"min_time"`
}

type VolumePoint struct {
	Volume float64 `json:"volume"`
	Time   string  `json:"time"`
}
