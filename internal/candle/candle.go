// Package candle implements the per-(symbol,interval) OHLCV store: folding
// trade prints into candles, gap-filling silent intervals, and enforcing
// bounded retention. It is the shared-mutable heart of the service — written
// by one Ingestor per symbol, read concurrently by the query façade.
package candle

import "time"

// Interval is a supported bucket width, expressed in seconds.
type Interval int64

// Supported bucket widths: 1m,3m,5m,15m,30m,1h,1D,1W,1M(=30d).
const (
	Interval1m  Interval = 60
	Interval3m  Interval = 180
	Interval5m  Interval = 300
	Interval15m Interval = 900
	Interval30m Interval = 1800
	Interval1h  Interval = 3600
	Interval1d  Interval = 86400
	Interval1w  Interval = 604800
	Interval1M  Interval = 2592000
)

// AllIntervals lists every bucket width a trade is folded into.
var AllIntervals = []Interval{
	Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval1d, Interval1w, Interval1M,
}

// MaxCandles bounds how many candles a single (symbol,interval) series
// retains. Exceeding it drops the oldest entries from the front.
const MaxCandles = 1_000_000

// Candle is one completed or in-progress OHLCV bucket. Prices and volume are
// carried in the raw integer units of the source chain; the decimals divisor
// is applied only at query time (see internal/query).
type Candle struct {
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Valid reports whether the candle satisfies the OHLC invariants:
// low <= open <= high, low <= close <= high, volume >= 0.
func (c Candle) Valid() bool {
	if c.Volume < 0 {
		return false
	}
	if c.Low > c.Open || c.Open > c.High {
		return false
	}
	if c.Low > c.Close || c.Close > c.High {
		return false
	}
	return true
}

// PeriodStart computes the aligned bucket start for eventTime under
// interval, per the alignment rules in SPEC_FULL §4.1:
//   - sub-day intervals: floor(t/interval)*interval
//   - 1D: UTC midnight of the event's date
//   - 1W: preceding Monday 00:00 UTC
//   - 1M (30d approximation): floor(t/interval)*interval, same as sub-day
func PeriodStart(eventTime time.Time, interval Interval) time.Time {
	t := eventTime.UTC()
	switch interval {
	case Interval1d:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Interval1w:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// time.Weekday: Sunday=0 ... Saturday=6. Days since the most recent Monday.
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	default:
		secs := t.Unix()
		n := int64(interval)
		floored := secs - (secs % n)
		if secs < 0 && secs%n != 0 {
			floored -= n
		}
		return time.Unix(floored, 0).UTC()
	}
}
