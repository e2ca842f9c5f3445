package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"sparkcandles/internal/candle"
	"sparkcandles/internal/metrics"
	"sparkcandles/internal/pairconfig"
	"sparkcandles/internal/pangea"
)

// State names the Ingestor's current phase, mirroring the lifecycle a
// single pair's feed moves through from process start to shutdown.
type State string

const (
	StateInit      State = "init"
	StateConnect   State = "connect"
	StateBackfill  State = "backfill"
	StateSubscribe State = "subscribe"
	StateReconnect State = "reconnect"
	StateShutdown  State = "shutdown"
)

const subscribeTimeout = 10 * time.Second

// allStates lists every lifecycle state, used to zero the inactive states on
// an ingestor_state gauge update.
var allStates = []string{
	string(StateInit), string(StateConnect), string(StateBackfill),
	string(StateSubscribe), string(StateReconnect), string(StateShutdown),
}

// Config tunes an Ingestor's reconnect backoff. Zero values fall back to
// the defaults below.
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

func (c Config) withDefaults() Config {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2
	}
	return c
}

// Ingestor drives one trading pair's feed: it backfills from the pair's
// configured start block, then subscribes live, folding every decoded trade
// into the pair's candle.Store across every supported interval.
type Ingestor struct {
	pair     pairconfig.PairConfig
	store    *candle.Store
	provider Provider
	logger   *zap.Logger
	cfg      Config
	metrics  *metrics.PrometheusMetrics

	// OnFold, if set, is called after every trade is successfully folded —
	// the hook cmd/sparkcandles uses to publish the latest candles through
	// internal/notify and the live broadcaster.
	OnFold func(symbol string)

	mu     sync.RWMutex
	state  State
	cursor int64
}

// NewIngestor builds an Ingestor for one pair. store must be the CandleStore
// dedicated to pair.Symbol. m may be nil, disabling metrics recording.
func NewIngestor(pair pairconfig.PairConfig, store *candle.Store, provider Provider, logger *zap.Logger, cfg Config, m *metrics.PrometheusMetrics) *Ingestor {
	return &Ingestor{
		pair:     pair,
		store:    store,
		provider: provider,
		logger:   logger.With(zap.String("symbol", pair.Symbol)),
		cfg:      cfg.withDefaults(),
		metrics:  m,
		state:    StateInit,
		cursor:   pair.StartBlock - 1,
	}
}

// State returns the Ingestor's current lifecycle phase.
func (ig *Ingestor) State() State {
	ig.mu.RLock()
	defer ig.mu.RUnlock()
	return ig.state
}

func (ig *Ingestor) setState(s State) {
	ig.mu.Lock()
	ig.state = s
	ig.mu.Unlock()

	if ig.metrics != nil {
		ig.metrics.SetIngestorState(ig.pair.Symbol, allStates, string(s))
	}
}

// Cursor returns the block number of the last trade record folded.
func (ig *Ingestor) Cursor() int64 {
	ig.mu.RLock()
	defer ig.mu.RUnlock()
	return ig.cursor
}

// Run drives the pair's full lifecycle until ctx is cancelled. It is meant
// to be handed to a supervisor.Worker as its WorkerFunc: an error return
// here means either ctx was cancelled or the backfill request could not be
// issued (that failure is returned at once, with no internal backoff), and
// the supervisor's own retry applies above it.
func (ig *Ingestor) Run(ctx context.Context) error {
	ig.setState(StateConnect)

	if err := ig.backfill(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			ig.setState(StateShutdown)
			return err
		}
		ig.logger.Error("backfill failed", zap.Error(err))
		return err
	}

	err := ig.subscribeLoop(ctx)
	ig.setState(StateShutdown)
	return err
}

// backfill fetches every historical trade from the pair's start block
// through the provider's chain head, folding each one and advancing cursor.
func (ig *Ingestor) backfill(ctx context.Context) error {
	ig.setState(StateBackfill)
	ig.logger.Info("starting backfill", zap.Int64("from_block", ig.pair.StartBlock))

	raw, errs, err := ig.provider.Backfill(ctx, ig.pair.ContractID, ig.pair.StartBlock)
	if err != nil {
		return err
	}

	for raw != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-raw:
			if !ok {
				raw = nil
				continue
			}
			ig.handleMessage(msg)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				ig.logger.Warn("backfill stream error", zap.Error(err))
			}
		}
	}

	ig.logger.Info("backfill complete", zap.Int64("cursor", ig.Cursor()))
	return nil
}

// subscribeLoop holds the live subscription open, reconnecting with
// exponential backoff (reset to cfg.InitialBackoff on every successful
// connection) whenever the stream drops.
func (ig *Ingestor) subscribeLoop(ctx context.Context) error {
	backoff := ig.cfg.InitialBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ig.setState(StateSubscribe)

		// The timeout bounds only the subscribe attempt; an established
		// stream runs under subCtx until it drops or ctx is cancelled.
		subCtx, cancel := context.WithCancel(ctx)
		timer := time.AfterFunc(subscribeTimeout, cancel)
		raw, errs, err := ig.provider.Subscribe(subCtx, ig.pair.ContractID, ig.Cursor()+1)
		timer.Stop()

		if err != nil {
			cancel()
			ig.logger.Warn("subscribe failed, reconnecting", zap.Error(err), zap.Duration("backoff", backoff))
			ig.setState(StateReconnect)
			if ig.metrics != nil {
				ig.metrics.RecordReconnect(ig.pair.Symbol)
			}
			if !ig.sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, ig.cfg)
			continue
		}

		// Connection established; reset backoff for the next drop.
		backoff = ig.cfg.InitialBackoff

		streamErr := ig.drainSubscription(ctx, raw, errs)
		cancel()
		if streamErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ig.logger.Warn("subscription dropped, reconnecting", zap.Error(streamErr))
		}

		ig.setState(StateReconnect)
		if ig.metrics != nil {
			ig.metrics.RecordReconnect(ig.pair.Symbol)
		}
		if !ig.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, ig.cfg)
	}
}

// drainSubscription reads from an established subscription until it ends,
// folding every decoded trade and advancing cursor.
func (ig *Ingestor) drainSubscription(ctx context.Context, raw <-chan []byte, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-raw:
			if !ok {
				return nil
			}
			ig.handleMessage(msg)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// handleMessage decodes one raw record and folds it if it's a usable trade
// that advances the cursor; anything older than the cursor is a replay and
// is silently skipped rather than re-folded.
func (ig *Ingestor) handleMessage(raw []byte) {
	trade, reason, ok := pangea.Decode(raw)
	if !ok {
		ig.logger.Debug("skipped record", zap.String("reason", string(reason)))
		if ig.metrics != nil {
			ig.metrics.RecordSkipped(ig.pair.Symbol, string(reason))
		}
		return
	}

	if trade.BlockNumber <= ig.Cursor() {
		return
	}

	price, _ := trade.Price.Float64()
	amount, _ := trade.Amount.Float64()
	eventTime := time.Unix(trade.BlockTimestamp, 0).UTC()

	for _, iv := range candle.AllIntervals {
		gapFilled, seriesLen, err := ig.store.FoldObserved(ig.pair.Symbol, iv, price, amount, eventTime)
		if err != nil {
			ig.logger.Warn("fold rejected", zap.Error(err), zap.Int64("interval", int64(iv)))
			continue
		}
		if ig.metrics != nil {
			ig.metrics.RecordFold(ig.pair.Symbol, int64(iv))
			ig.metrics.RecordGapFill(ig.pair.Symbol, int64(iv), gapFilled)
			ig.metrics.SetSeriesLength(ig.pair.Symbol, int64(iv), seriesLen)
		}
	}

	ig.mu.Lock()
	ig.cursor = trade.BlockNumber
	ig.mu.Unlock()

	if ig.OnFold != nil {
		ig.OnFold(ig.pair.Symbol)
	}
}

// sleep waits for d or ctx cancellation, returning false if ctx was cancelled first.
func (ig *Ingestor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(current time.Duration, cfg Config) time.Duration {
	next := time.Duration(float64(current) * cfg.BackoffFactor)
	if next > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return next
}
