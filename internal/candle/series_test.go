package candle

import (
	"math/rand"
	"testing"
	"time"
)

// Invariants 1–3, 5 over a long in-order random walk of trades across every
// supported interval: OHLC ordering, strict continuity, alignment
// idempotence, and bounded length.
func TestFold_InvariantsHoldOverRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewStore(500)

	price := 100.0
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eventTime := start

	for i := 0; i < 5000; i++ {
		price += rng.Float64()*2 - 1
		if price <= 0 {
			price = 1
		}
		volume := rng.Float64() * 10
		eventTime = eventTime.Add(time.Duration(rng.Intn(5000)) * time.Millisecond)

		for _, iv := range AllIntervals {
			_ = s.Fold("WALK", iv, price, volume, eventTime)
		}
	}

	for _, iv := range AllIntervals {
		candles := s.Range("WALK", iv, unixUTC(0), eventTime.Add(24*time.Hour*365))
		if len(candles) > 500 {
			t.Fatalf("interval %d: length %d exceeds cap", iv, len(candles))
		}
		for i, c := range candles {
			if !c.Valid() {
				t.Fatalf("interval %d candle %d fails OHLC invariant: %+v", iv, i, c)
			}
			aligned := PeriodStart(c.BucketStart, iv)
			if !aligned.Equal(c.BucketStart) {
				t.Fatalf("interval %d candle %d not aligned: %v realigns to %v", iv, i, c.BucketStart, aligned)
			}
			if i > 0 {
				prev := candles[i-1]
				got := c.BucketStart.Sub(prev.BucketStart)
				want := time.Duration(iv) * time.Second
				if got != want {
					t.Fatalf("interval %d: gap between candle %d and %d = %v, want %v", iv, i-1, i, got, want)
				}
			}
		}
	}
}
