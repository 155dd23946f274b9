package models

// intervalDurations maps the supported chart interval tokens to their
// duration in milliseconds. 1M uses the 30-day convention of the upstream
// kline API.
var intervalDurations = map[string]int64{
	"1m":  60_000,
	"3m":  3 * 60_000,
	"5m":  5 * 60_000,
	"15m": 15 * 60_000,
	"30m": 30 * 60_000,
	"1h":  3_600_000,
	"2h":  2 * 3_600_000,
	"4h":  4 * 3_600_000,
	"6h":  6 * 3_600_000,
	"8h":  8 * 3_600_000,
	"12h": 12 * 3_600_000,
	"1d":  86_400_000,
	"3d":  3 * 86_400_000,
	"1w":  7 * 86_400_000,
	"1M":  30 * 86_400_000,
}

// IntervalDuration returns the millisecond duration of an interval token.
// Unknown tokens return 0; callers are expected to validate tokens at the
// API boundary with ValidInterval.
func IntervalDuration(interval string) int64 {
	return intervalDurations[interval]
}

// ValidInterval reports whether the token is a supported chart interval.
func ValidInterval(interval string) bool {
	_, ok := intervalDurations[interval]
	return ok
}
