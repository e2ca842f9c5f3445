package candle

import (
	"sort"
	"sync"
	"time"
)

// Store is the concurrent symbol -> interval -> series map. A production
// deployment creates one Store per trading pair (see internal/pairconfig),
// so that an Ingestor's writes on one pair never block the query façade's
// reads on another — the mutex below guards only this Store's own data.
//
// Guarded by a single RWMutex: writes (Fold) exclude all other access;
// reads (Last, Range, MinMaxTimestamp) run concurrently with each other but
// block during a write. A fold — including any gap-fill it triggers — is one
// critical section, so a reader never observes a partially gap-filled series.
type Store struct {
	mu         sync.RWMutex
	bySymbol   map[string]map[Interval]*series
	maxCandles int
}

// NewStore creates an empty Store. maxCandles <= 0 uses MaxCandles.
func NewStore(maxCandles int) *Store {
	return &Store{
		bySymbol:   make(map[string]map[Interval]*series),
		maxCandles: maxCandles,
	}
}

// Fold folds one trade print into the (symbol,interval) series, creating the
// series on demand. Infallible for well-formed input; out-of-order events are
// rejected (series left untouched) and the error is returned purely so the
// caller can log a data-quality warning — the store's invariants always hold
// after this call returns, err or not.
func (s *Store) Fold(symbol string, interval Interval, price, volume float64, eventTime time.Time) error {
	_, _, err := s.fold(symbol, interval, price, volume, eventTime)
	return err
}

// FoldObserved is Fold, plus the two observability counters a caller may
// want to record: how many flat gap-fill candles this event inserted, and
// the series' length immediately after the fold.
func (s *Store) FoldObserved(symbol string, interval Interval, price, volume float64, eventTime time.Time) (gapFilled, seriesLen int, err error) {
	return s.fold(symbol, interval, price, volume, eventTime)
}

func (s *Store) fold(symbol string, interval Interval, price, volume float64, eventTime time.Time) (gapFilled, seriesLen int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intervals, ok := s.bySymbol[symbol]
	if !ok {
		intervals = make(map[Interval]*series)
		s.bySymbol[symbol] = intervals
	}
	ser, ok := intervals[interval]
	if !ok {
		ser = newSeries(s.maxCandles)
		intervals[interval] = ser
	}
	gapFilled, err = ser.fold(interval, price, volume, eventTime)
	return gapFilled, ser.len(), err
}

// Last returns the count most recent candles for (symbol,interval), newest
// first. Empty slice if the series doesn't exist.
func (s *Store) Last(symbol string, interval Interval, count int) []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser := s.seriesFor(symbol, interval)
	if ser == nil {
		return nil
	}
	return ser.last(count)
}

// Range returns every candle for (symbol,interval) whose BucketStart lies in
// [from,to], chronological order.
func (s *Store) Range(symbol string, interval Interval, from, to time.Time) []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser := s.seriesFor(symbol, interval)
	if ser == nil {
		return nil
	}
	return ser.rangeBetween(from, to)
}

// Len reports the current series length for (symbol,interval).
func (s *Store) Len(symbol string, interval Interval) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser := s.seriesFor(symbol, interval)
	if ser == nil {
		return 0
	}
	return ser.len()
}

// MinMaxTimestamp returns the earliest and latest BucketStart across every
// series in the store, or ok=false if the store is empty.
func (s *Store) MinMaxTimestamp() (min, max time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, intervals := range s.bySymbol {
		for _, ser := range intervals {
			for _, c := range ser.candles {
				if !ok || c.BucketStart.Before(min) {
					min = c.BucketStart
				}
				if !ok || c.BucketStart.After(max) {
					max = c.BucketStart
				}
				ok = true
			}
		}
	}
	return min, max, ok
}

// Symbols returns the set of symbols with at least one series, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.bySymbol))
	for sym := range s.bySymbol {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// seriesFor must be called with s.mu held (read or write).
func (s *Store) seriesFor(symbol string, interval Interval) *series {
	intervals, ok := s.bySymbol[symbol]
	if !ok {
		return nil
	}
	return intervals[interval]
}
