package indicators

import (
	"fmt"
	"time"

	"CandleCast/internal/domain/models"
)

const (
	recentSpan = 14 * 24 * time.Hour
	rangeSpan  = 7 * 24 * time.Hour
	topVolumes = 5
)

// Windows sizes every look-back the engine uses, in candles.
type Windows struct {
	SMA    []int
	Recent int // trailing candles summarised as "recent" (14 days)
	Range  int // trailing candles of Recent used for extrema (7 days)
	TopK   int
}

// WindowsFor derives the recent and range counts from the recording interval.
// At 4h that is 84 and 42.
func WindowsFor(interval time.Duration) Windows {
	recent := int(recentSpan / interval)
	rng := int(rangeSpan / interval)
	if recent < 1 {
		recent = 1
	}
	if rng < 1 {
		rng = 1
	}
	return Windows{
		SMA:    append([]int(nil), models.SMAWindows...),
		Recent: recent,
		Range:  rng,
		TopK:   topVolumes,
	}
}

// DefaultWindows is WindowsFor(4h).
func DefaultWindows() Windows {
	return WindowsFor(4 * time.Hour)
}

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseInterval understands exchange kline intervals such as "4h" or "1d".
func ParseInterval(s string) (time.Duration, error) {
	d, ok := intervals[s]
	if !ok {
		return 0, fmt.Errorf("%w %q", models.ErrUnknownInterval, s)
	}
	return d, nil
}
