// Package notify publishes freshly-folded candle snapshots to Redis
// pub/sub so downstream consumers (a live-charting front end, another
// internal service) can react without polling the query façade.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sparkcandles/internal/candle"
	"sparkcandles/internal/pairconfig"
)

// CandleUpdate is the payload published on a symbol's candle channel.
type CandleUpdate struct {
	Symbol   string        `json:"symbol"`
	Interval int64         `json:"interval"`
	Candle   candle.Candle `json:"candle"`
}

// Metrics tracks publishing statistics.
type Metrics struct {
	TotalEvents      int64
	SuccessfulEvents int64
	FailedEvents     int64
	ThrottledEvents  int64
	LastPublish      time.Time
}

// Publisher publishes candle updates to Redis, throttled to a maximum rate
// per second so a hot pair can't starve the connection during a burst.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger

	mu      sync.RWMutex
	metrics Metrics

	maxPerSecond  int
	throttleMu    sync.Mutex
	count         int
	windowStarted time.Time
}

// NewPublisher creates a Publisher with a default throttle of 1000
// messages/second, generous enough for the 9-interval fan-out of a single
// busy pair without masking a genuinely runaway publish loop.
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:        client,
		logger:        logger,
		maxPerSecond:  1000,
		windowStarted: time.Now(),
	}
}

// channelName is the Redis pub/sub channel for one symbol's candle updates.
func channelName(symbol string) string {
	return fmt.Sprintf("candles:%s", symbol)
}

// PublishFold notifies subscribers that symbol's (interval) series changed,
// sending the latest candle. Throttled; a dropped publish is logged at
// debug level and never propagated as a caller-visible error since a missed
// live-push notification doesn't affect the authoritative CandleStore.
func (p *Publisher) PublishFold(ctx context.Context, symbol string, interval candle.Interval, latest candle.Candle) {
	if !p.allow() {
		p.record(false, true)
		p.logger.Debug("candle update throttled", zap.String("symbol", symbol))
		return
	}

	payload, err := json.Marshal(CandleUpdate{Symbol: symbol, Interval: int64(interval), Candle: latest})
	if err != nil {
		p.record(false, false)
		p.logger.Error("failed to marshal candle update", zap.Error(err))
		return
	}

	if err := p.client.Publish(ctx, channelName(symbol), payload).Err(); err != nil {
		p.record(false, false)
		p.logger.Warn("failed to publish candle update", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	p.record(true, false)
}

// PublishLatest publishes the most recent candle on every interval for
// symbol, using store's current state. Intended to be called from an
// Ingestor's OnFold hook.
func (p *Publisher) PublishLatest(ctx context.Context, symbol string, registry *pairconfig.Registry) {
	store := registry.Store(symbol)
	if store == nil {
		return
	}
	for _, iv := range candle.AllIntervals {
		latest := store.Last(symbol, iv, 1)
		if len(latest) == 0 {
			continue
		}
		p.PublishFold(ctx, symbol, iv, latest[0])
	}
}

func (p *Publisher) allow() bool {
	p.throttleMu.Lock()
	defer p.throttleMu.Unlock()

	now := time.Now()
	if now.Sub(p.windowStarted) >= time.Second {
		p.count = 0
		p.windowStarted = now
	}
	if p.count >= p.maxPerSecond {
		return false
	}
	p.count++
	return true
}

func (p *Publisher) record(success, throttled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.TotalEvents++
	if throttled {
		p.metrics.ThrottledEvents++
		return
	}
	if success {
		p.metrics.SuccessfulEvents++
		p.metrics.LastPublish = time.Now()
	} else {
		p.metrics.FailedEvents++
	}
}

// Metrics returns a snapshot of current publishing statistics.
func (p *Publisher) Metrics() Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// Close releases the underlying Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
