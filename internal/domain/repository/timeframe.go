package repository

import "time"

// timeframeWidth maps every supported timeframe to its bucket width.
// A timeframe missing here is unsupported.
var timeframeWidth = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

// IsValidTimeframe reports whether tf is supported.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframeWidth[tf]
	return ok
}

// DefaultTimeframe is what queries fall back to when the caller names no
// timeframe, or an unknown one.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe maps a raw request string onto a supported
// timeframe, falling back to the default.
func NormalizeTimeframe(s string) Timeframe {
	if tf := Timeframe(s); IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration returns the bucket width of the timeframe. Unknown values
// read as the default's width.
func (tf Timeframe) Duration() time.Duration {
	if d, ok := timeframeWidth[tf]; ok {
		return d
	}
	return timeframeWidth[DefaultTimeframe()]
}
