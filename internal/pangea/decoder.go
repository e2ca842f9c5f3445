package pangea

import "encoding/json"

// Decode parses a single JSON-encoded upstream record and returns the
// TradeEvent it represents, or ok=false with a SkipReason for logging.
// Never panics or returns an error — malformed input is just another skip
// reason, per SPEC_FULL §7's data-quality error taxonomy.
func Decode(raw []byte) (TradeEvent, SkipReason, bool) {
	var ev RawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return TradeEvent{}, SkipMalformedJSON, false
	}

	if ev.EventType == nil {
		return TradeEvent{}, SkipMissingEventType, false
	}
	if *ev.EventType != "Trade" {
		return TradeEvent{}, SkipNotTrade, false
	}
	if ev.Price == nil {
		return TradeEvent{}, SkipMissingPrice, false
	}
	if ev.Amount == nil {
		return TradeEvent{}, SkipMissingAmount, false
	}

	return TradeEvent{
		Chain:           ev.Chain,
		BlockNumber:     ev.BlockNumber,
		BlockTimestamp:  ev.BlockTimestamp,
		TransactionHash: ev.TransactionHash,
		LogIndex:        ev.LogIndex,
		MarketID:        ev.MarketID,
		Price:           *ev.Price,
		Amount:          *ev.Amount,
	}, "", true
}
