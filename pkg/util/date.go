package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// DefaultInterval is used for unknown or empty history intervals.
const DefaultInterval = "1d"

var intervals = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"max": 0,
}

// ParseInterval normalizes a history interval and returns its lookback.
// "max" has a zero lookback, meaning the full history. Anything unknown
// falls back to DefaultInterval.
func ParseInterval(s string) (string, time.Duration) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := intervals[s]; ok {
		return s, d
	}
	return DefaultInterval, intervals[DefaultInterval]
}

// IntervalStart returns the beginning of the lookback window ending at now,
// or the zero time for "max".
func IntervalStart(interval string, now time.Time) time.Time {
	_, d := ParseInterval(interval)
	if d == 0 {
		return time.Time{}
	}
	return now.Add(-d)
}
