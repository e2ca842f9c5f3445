// Package ingest runs the per-pair state machine that turns one upstream
// trade feed into folds against a candle.Store: backfill from the pair's
// configured start block, then a live subscription that reconnects with
// exponential backoff.
package ingest

import "context"

// Provider is the upstream trade event source. The production
// implementation talks to the Pangea indexer over its query/subscribe
// protocol; tests substitute a fake that plays back a fixed script.
type Provider interface {
	// Backfill streams every raw trade record for marketID from fromBlock
	// through the provider's current chain head, then closes both channels.
	Backfill(ctx context.Context, marketID string, fromBlock int64) (<-chan []byte, <-chan error, error)

	// Subscribe streams raw trade records for marketID starting at
	// fromBlock, continuing live as new blocks arrive. The returned
	// channels are closed when the subscription ends, whether by ctx
	// cancellation or a dropped connection.
	Subscribe(ctx context.Context, marketID string, fromBlock int64) (<-chan []byte, <-chan error, error)
}
