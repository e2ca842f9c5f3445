package candle

import (
	"testing"
	"time"
)

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// S1 — single trade, three intervals.
func TestFold_SingleTradeThreeIntervals(t *testing.T) {
	s := NewStore(0)
	eventTime := unixUTC(1_700_000_000)

	if err := s.Fold("BTC-USD", Interval1m, 100, 5, eventTime); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := s.Fold("BTC-USD", Interval1h, 100, 5, eventTime); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := s.Fold("BTC-USD", Interval1d, 100, 5, eventTime); err != nil {
		t.Fatalf("fold: %v", err)
	}

	m1 := s.Last("BTC-USD", Interval1m, 1)
	if len(m1) != 1 {
		t.Fatalf("interval60: want 1 candle, got %d", len(m1))
	}
	want := Candle{BucketStart: unixUTC(1_699_999_980), Open: 100, High: 100, Low: 100, Close: 100, Volume: 5}
	if m1[0] != want {
		t.Fatalf("interval60 candle = %+v, want %+v", m1[0], want)
	}

	h1 := s.Last("BTC-USD", Interval1h, 1)
	if len(h1) != 1 || !h1[0].BucketStart.Equal(unixUTC(1_699_999_200)) {
		t.Fatalf("interval3600 bucket_start = %v, want 1699999200", h1)
	}

	d1 := s.Last("BTC-USD", Interval1d, 1)
	if len(d1) != 1 || !d1[0].BucketStart.Equal(unixUTC(1_699_920_000)) {
		t.Fatalf("interval86400 bucket_start = %v, want 1699920000", d1)
	}
}

// S2 — two trades, same minute bucket.
func TestFold_SameBucketMerges(t *testing.T) {
	s := NewStore(0)
	s.Fold("X", Interval1m, 100, 1, unixUTC(1_700_000_000))
	s.Fold("X", Interval1m, 110, 2, unixUTC(1_700_000_030))

	got := s.Last("X", Interval1m, 1)
	want := Candle{BucketStart: unixUTC(1_699_999_980), Open: 100, High: 110, Low: 100, Close: 110, Volume: 3}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// S3 — two trades, non-adjacent minute buckets, gap-filled. The first trade's
// bucket starts at 1_699_999_980, the second's at 1_700_000_160 — three
// buckets apart, so two flat candles are gap-filled in between.
func TestFold_GapFillCarriesForward(t *testing.T) {
	s := NewStore(0)
	s.Fold("X", Interval1m, 100, 1, unixUTC(1_700_000_000))
	s.Fold("X", Interval1m, 90, 4, unixUTC(1_700_000_180))

	all := s.Range("X", Interval1m, unixUTC(0), unixUTC(2_000_000_000))
	if len(all) != 4 {
		t.Fatalf("want 4 candles (1 + 2 gap-fill + 1 new), got %d: %+v", len(all), all)
	}

	first := all[0]
	if first.BucketStart != unixUTC(1_699_999_980) || first.Close != 100 {
		t.Fatalf("first candle wrong: %+v", first)
	}

	for i, wantStart := range []int64{1_700_000_040, 1_700_000_100} {
		gapFilled := all[i+1]
		if gapFilled.BucketStart != unixUTC(wantStart) {
			t.Fatalf("gap-filled[%d] bucket_start = %v, want %d", i, gapFilled.BucketStart, wantStart)
		}
		if gapFilled.Open != 100 || gapFilled.High != 100 || gapFilled.Low != 100 || gapFilled.Close != 100 || gapFilled.Volume != 0 {
			t.Fatalf("gap-filled[%d] candle not flat carry-forward: %+v", i, gapFilled)
		}
	}

	last := all[3]
	if last.BucketStart != unixUTC(1_700_000_160) {
		t.Fatalf("final bucket_start = %v, want 1700000160", last.BucketStart)
	}
	if last.Open != 90 || last.High != 90 || last.Low != 90 || last.Close != 90 || last.Volume != 4 {
		t.Fatalf("final candle wrong: %+v", last)
	}
}

// S4 — out-of-order rejection.
func TestFold_OutOfOrderRejected(t *testing.T) {
	s := NewStore(0)
	s.Fold("X", Interval1m, 100, 1, unixUTC(1_700_000_000))
	s.Fold("X", Interval1m, 110, 2, unixUTC(1_700_000_030))

	before := s.Last("X", Interval1m, 10)

	err := s.Fold("X", Interval1m, 999, 999, unixUTC(1_699_999_900))
	if err == nil {
		t.Fatal("expected out-of-order rejection, got nil error")
	}
	if _, ok := err.(*ErrOutOfOrder); !ok {
		t.Fatalf("expected *ErrOutOfOrder, got %T", err)
	}

	after := s.Last("X", Interval1m, 10)
	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("series mutated by rejected event: before=%+v after=%+v", before, after)
	}
}

// S5 — bounded retention.
func TestFold_BoundedRetention(t *testing.T) {
	s := NewStore(3)
	base := int64(1_700_000_000)
	for i := 0; i < 5; i++ {
		s.Fold("X", Interval1m, float64(100+i), 1, unixUTC(base+int64(i)*60))
	}

	got := s.Range("X", Interval1m, unixUTC(0), unixUTC(2_000_000_000))
	if len(got) != 3 {
		t.Fatalf("want 3 candles retained, got %d", len(got))
	}
	// base is 20s into its minute, so the five trades land in the buckets
	// starting 1_699_999_980 + i*60; the last three of those are retained.
	wantStarts := []int64{1_700_000_100, 1_700_000_160, 1_700_000_220}
	for i, c := range got {
		if c.BucketStart.Unix() != wantStarts[i] {
			t.Fatalf("candle %d bucket_start = %v, want %d", i, c.BucketStart, wantStarts[i])
		}
	}
}

func TestPeriodStart_Alignment(t *testing.T) {
	cases := []struct {
		interval Interval
		input    int64
		want     int64
	}{
		{Interval1m, 1_700_000_007, 1_699_999_980},
		{Interval1h, 1_700_000_007, 1_699_999_200},
		{Interval1d, 1_700_000_007, 1_699_920_000},
	}
	for _, tc := range cases {
		got := PeriodStart(unixUTC(tc.input), tc.interval).Unix()
		if got != tc.want {
			t.Errorf("PeriodStart(%d,%d) = %d, want %d", tc.input, tc.interval, got, tc.want)
		}
	}
}

func TestPeriodStart_WeekAlignsToMonday(t *testing.T) {
	// 2023-11-16 was a Thursday.
	thu := time.Date(2023, 11, 16, 13, 45, 0, 0, time.UTC)
	got := PeriodStart(thu, Interval1w)
	want := time.Date(2023, 11, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("week bucket = %v, want %v (Monday)", got, want)
	}
}

func TestPeriodStart_Idempotent(t *testing.T) {
	for _, iv := range AllIntervals {
		start := PeriodStart(unixUTC(1_700_000_555), iv)
		again := PeriodStart(start, iv)
		if !start.Equal(again) {
			t.Errorf("interval %d: PeriodStart not idempotent: %v vs %v", iv, start, again)
		}
	}
}

// Invariant 6 — fold commutativity within a bucket (only open/close order matters).
func TestFold_Commutativity(t *testing.T) {
	s := NewStore(0)
	t0 := unixUTC(1_700_000_000)
	s.Fold("X", Interval1m, 10, 3, t0)
	s.Fold("X", Interval1m, 20, 7, t0.Add(5*time.Second))

	got := s.Last("X", Interval1m, 1)[0]
	if got.Open != 10 || got.Close != 20 || got.High != 20 || got.Low != 10 || got.Volume != 10 {
		t.Fatalf("commutativity candle = %+v", got)
	}
}

func TestCandle_Valid(t *testing.T) {
	good := Candle{Open: 5, High: 10, Low: 1, Close: 7, Volume: 3}
	if !good.Valid() {
		t.Fatal("expected valid candle to pass")
	}
	bad := Candle{Open: 15, High: 10, Low: 1, Close: 7, Volume: 3}
	if bad.Valid() {
		t.Fatal("expected invalid candle (open>high) to fail")
	}
	negVol := Candle{Open: 5, High: 10, Low: 1, Close: 7, Volume: -1}
	if negVol.Valid() {
		t.Fatal("expected negative-volume candle to fail")
	}
}

func TestFoldObserved_ReportsGapFillCountAndSeriesLength(t *testing.T) {
	s := NewStore(0)

	gapFilled, seriesLen, err := s.FoldObserved("X", Interval1m, 100, 1, unixUTC(1_700_000_000))
	if err != nil || gapFilled != 0 || seriesLen != 1 {
		t.Fatalf("first fold: gapFilled=%d seriesLen=%d err=%v, want 0/1/nil", gapFilled, seriesLen, err)
	}

	// Next trade lands 3 buckets later: 2 gap-filled buckets plus its own.
	gapFilled, seriesLen, err = s.FoldObserved("X", Interval1m, 110, 1, unixUTC(1_700_000_180))
	if err != nil || gapFilled != 2 || seriesLen != 4 {
		t.Fatalf("gap fold: gapFilled=%d seriesLen=%d err=%v, want 2/4/nil", gapFilled, seriesLen, err)
	}

	// Merge into the same bucket: no gap fill, series length unchanged.
	gapFilled, seriesLen, err = s.FoldObserved("X", Interval1m, 120, 1, unixUTC(1_700_000_185))
	if err != nil || gapFilled != 0 || seriesLen != 4 {
		t.Fatalf("merge fold: gapFilled=%d seriesLen=%d err=%v, want 0/4/nil", gapFilled, seriesLen, err)
	}

	// Out-of-order: rejected, series untouched.
	gapFilled, seriesLen, err = s.FoldObserved("X", Interval1m, 1, 1, unixUTC(1_699_999_000))
	if err == nil || gapFilled != 0 || seriesLen != 4 {
		t.Fatalf("rejected fold: gapFilled=%d seriesLen=%d err=%v, want 0/4/non-nil", gapFilled, seriesLen, err)
	}
}
