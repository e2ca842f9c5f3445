// Package pangea decodes raw trade records from the upstream on-chain
// order-book provider into typed TradeEvents, and defines the wire shapes
// used by the Ingestor's historical and live requests.
package pangea

import "github.com/shopspring/decimal"

// RawEvent mirrors the upstream JSON schema exactly (SPEC_FULL §4.2). Every
// field beyond the provenance identifiers is optional — only a "Trade" event
// carrying both Price and Amount decodes into a TradeEvent.
type RawEvent struct {
	Chain            uint64           `json:"chain"`
	BlockNumber      int64            `json:"block_number"`
	BlockHash        string           `json:"block_hash"`
	BlockTimestamp   int64            `json:"block_timestamp"`
	TransactionHash  string           `json:"transaction_hash"`
	TransactionIndex uint64           `json:"transaction_index"`
	LogIndex         uint64           `json:"log_index"`
	MarketID         string           `json:"market_id"`
	OrderID          string           `json:"order_id"`
	EventType        *string          `json:"event_type"`
	Asset            *string          `json:"asset"`
	Amount           *decimal.Decimal `json:"amount"`
	AssetType        *string          `json:"asset_type"`
	OrderType        *string          `json:"order_type"`
	Price            *decimal.Decimal `json:"price"`
	User             *string          `json:"user"`
	OrderMatcher     *string          `json:"order_matcher"`
	Owner            *string          `json:"owner"`
	LimitType        *string          `json:"limit_type"`
}

// TradeEvent is a decoded, fold-ready trade print. Price and Amount are kept
// as decimal.Decimal up to fold time so the full width of the upstream
// integer (up to 128 bits) is preserved; the cast to float64 — and its
// documented precision loss above 2^53 — happens only in the Ingestor, just
// before the trade is handed to candle.Store.
type TradeEvent struct {
	Chain            uint64
	BlockNumber      int64
	BlockTimestamp   int64
	TransactionHash  string
	LogIndex         uint64
	MarketID         string
	Price            decimal.Decimal
	Amount           decimal.Decimal
}

// SkipReason explains why a raw record was not decoded into a TradeEvent.
type SkipReason string

const (
	SkipNotTrade         SkipReason = "event_type is not Trade"
	SkipMissingEventType SkipReason = "event_type missing"
	SkipMissingPrice     SkipReason = "price missing"
	SkipMissingAmount    SkipReason = "amount missing"
	SkipMalformedJSON    SkipReason = "malformed JSON"
)
