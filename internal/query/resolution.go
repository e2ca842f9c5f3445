package query

import "sparkcandles/internal/candle"

// resolutionToInterval maps a UDF resolution string to its interval in
// seconds. Both the numeric-day/week/month forms ("1D","1W","1M") and their
// single-letter shorthands ("D","W","M") are accepted.
var resolutionToInterval = map[string]candle.Interval{
	"1":  candle.Interval1m,
	"3":  candle.Interval3m,
	"5":  candle.Interval5m,
	"15": candle.Interval15m,
	"30": candle.Interval30m,
	"60": candle.Interval1h,
	"1D": candle.Interval1d,
	"D":  candle.Interval1d,
	"1W": candle.Interval1w,
	"W":  candle.Interval1w,
	"1M": candle.Interval1M,
	"M":  candle.Interval1M,
}

// ResolutionToInterval resolves a UDF resolution string to its interval in
// seconds, reporting false for anything unsupported.
func ResolutionToInterval(resolution string) (candle.Interval, bool) {
	iv, ok := resolutionToInterval[resolution]
	return iv, ok
}
