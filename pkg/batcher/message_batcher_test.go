package batcher

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMessageBatcher_FlushesAtMaxSize(t *testing.T) {
	b := NewMessageBatcher(zap.NewNop(), 3, time.Minute, 1<<20, false)
	out := b.Start()
	defer b.Close()

	b.AddMessage(map[string]int{"candle": 1})
	b.AddMessage(map[string]int{"candle": 2})
	b.AddMessage(map[string]int{"candle": 3})

	select {
	case data := <-out:
		var batch BatchedMessage
		if err := json.Unmarshal(data, &batch); err != nil {
			t.Fatalf("unmarshal batch: %v", err)
		}
		if batch.Count != 3 {
			t.Fatalf("batch count = %d, want 3", batch.Count)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a flushed batch")
	}
}

func TestMessageBatcher_FlushesOnTimeout(t *testing.T) {
	b := NewMessageBatcher(zap.NewNop(), 100, 20*time.Millisecond, 1<<20, false)
	out := b.Start()
	defer b.Close()

	b.AddMessage(map[string]int{"candle": 1})

	select {
	case data := <-out:
		var batch BatchedMessage
		if err := json.Unmarshal(data, &batch); err != nil {
			t.Fatalf("unmarshal batch: %v", err)
		}
		if batch.Count != 1 {
			t.Fatalf("batch count = %d, want 1", batch.Count)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a timeout-triggered flush")
	}
}
