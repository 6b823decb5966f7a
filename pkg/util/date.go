package util

import (
	"strconv"
	"time"
)

// CandleTimeLayout is the zone-less UTC layout used for candle open times.
const CandleTimeLayout = "2006-01-02T15:04:05"

// FormatCandleTime renders a millisecond epoch as a UTC candle time.
func FormatCandleTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(CandleTimeLayout)
}

// ParseTime tries the candle layout, RFC3339, RFC3339Nano and unix seconds.
// Zone-less values are read as UTC. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{CandleTimeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
