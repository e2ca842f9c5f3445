// Package query implements the UDF-compatible read-only query façade over
// the pair registry's candle stores: history bars, symbol metadata, config,
// server time, and symbol search. It never returns an internal error to the
// caller — failures degrade to a {s:"error"} or {s:"no_data"} payload.
package query

import (
	"math"
	"strings"
	"time"

	"sparkcandles/internal/candle"
	"sparkcandles/internal/pairconfig"
)

// Facade answers UDF protocol queries against a pair registry.
type Facade struct {
	registry *pairconfig.Registry
}

var (
	epoch     = time.Unix(0, 0).UTC()
	farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
)

// NewFacade builds a Facade over registry.
func NewFacade(registry *pairconfig.Registry) *Facade {
	return &Facade{registry: registry}
}

// History resolves a resolution string to an interval, fetches the bucket
// range, optionally trims to the last countback candles, divides price and
// volume fields by 10^decimals, and returns the UDF bars payload.
func (f *Facade) History(symbol, resolution string, from, to int64, countback int) HistoryResponse {
	interval, ok := ResolutionToInterval(resolution)
	if !ok {
		return HistoryResponse{Status: StatusError, Message: "unsupported resolution"}
	}

	store := f.registry.Store(symbol)
	cfg, known := f.registry.Config(symbol)
	if store == nil || !known {
		return HistoryResponse{Status: StatusError, Message: "symbol not found"}
	}

	candles := store.Range(symbol, interval, time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC())
	if len(candles) == 0 {
		return HistoryResponse{Status: StatusNoData}
	}

	if countback > 0 && len(candles) > countback {
		candles = candles[len(candles)-countback:]
	}

	return scale(candles, cfg.DecimalsOrDefault())
}

// Candles returns every retained candle for (symbol, intervalSeconds),
// scaled by the pair's decimals — a thin projection used by the /candles
// endpoint, which (unlike /history) takes a raw interval rather than a
// resolution string.
func (f *Facade) Candles(symbol string, intervalSeconds int64) HistoryResponse {
	store := f.registry.Store(symbol)
	cfg, known := f.registry.Config(symbol)
	if store == nil || !known {
		return HistoryResponse{Status: StatusError, Message: "symbol not found"}
	}

	candles := store.Range(symbol, candle.Interval(intervalSeconds), epoch, farFuture)
	if len(candles) == 0 {
		return HistoryResponse{Status: StatusNoData}
	}

	return scale(candles, cfg.DecimalsOrDefault())
}

// scale projects candles into the UDF bars payload, dividing every price and
// volume field by 10^decimals.
func scale(candles []candle.Candle, decimals int) HistoryResponse {
	divisor := math.Pow10(decimals)
	resp := HistoryResponse{
		Status: StatusOK,
		Time:   make([]int64, len(candles)),
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i, c := range candles {
		resp.Time[i] = c.BucketStart.Unix()
		resp.Open[i] = c.Open / divisor
		resp.High[i] = c.High / divisor
		resp.Low[i] = c.Low / divisor
		resp.Close[i] = c.Close / divisor
		resp.Volume[i] = c.Volume / divisor
	}
	return resp
}

// Timestamps returns just the bucket_start values retained for
// (symbol, intervalSeconds), oldest first.
func (f *Facade) Timestamps(symbol string, intervalSeconds int64) []int64 {
	store := f.registry.Store(symbol)
	if store == nil {
		return nil
	}
	candles := store.Range(symbol, candle.Interval(intervalSeconds), epoch, farFuture)
	out := make([]int64, len(candles))
	for i, c := range candles {
		out[i] = c.BucketStart.Unix()
	}
	return out
}

// MinMaxTimestamp answers /timestamps_meta: the earliest and latest
// bucket_start retained for symbol, across every interval it stores (a
// symbol's store is shared by all intervals, so this is symbol-wide, not
// per-interval). Degrades to StatusError if the symbol is unknown and to
// StatusNoData if it has no retained candles yet, never an internal error.
func (f *Facade) MinMaxTimestamp(symbol string) TimestampsMetaResponse {
	store := f.registry.Store(symbol)
	if store == nil {
		return TimestampsMetaResponse{Status: StatusError}
	}

	min, max, ok := store.MinMaxTimestamp()
	if !ok {
		return TimestampsMetaResponse{Status: StatusNoData}
	}

	return TimestampsMetaResponse{Status: StatusOK, Min: min.Unix(), Max: max.Unix()}
}

// Symbol returns the UDF symbol-info payload for one configured pair.
func (f *Facade) Symbol(symbol string) (SymbolInfo, bool) {
	cfg, ok := f.registry.Config(symbol)
	if !ok {
		return SymbolInfo{}, false
	}
	return f.symbolInfo(cfg), true
}

// Symbols returns the UDF symbol-info payload for every configured pair.
func (f *Facade) Symbols() []SymbolInfo {
	all := f.registry.All()
	out := make([]SymbolInfo, len(all))
	for i, cfg := range all {
		out[i] = f.symbolInfo(cfg)
	}
	return out
}

func (f *Facade) symbolInfo(cfg pairconfig.PairConfig) SymbolInfo {
	return SymbolInfo{
		Symbol:               cfg.Symbol,
		Ticker:               cfg.Symbol,
		Name:                 cfg.Description,
		Description:          cfg.Description,
		Type:                 "crypto",
		Exchange:             "Pangea",
		Timezone:             "Etc/UTC",
		Minmov:               1,
		Pricescale:           int(math.Pow10(cfg.DecimalsOrDefault())),
		Session:              "24x7",
		HasIntraday:          true,
		HasDaily:             true,
		SupportedResolutions: supportedResolutions,
		IntradayMultipliers:  intradayMultipliers,
		Format:               "price",
	}
}

// SymbolsMeta returns the full PairConfig metadata for every configured pair.
func (f *Facade) SymbolsMeta() []pairconfig.PairConfig {
	return f.registry.All()
}

// Config answers /config with the UDF capability descriptor.
func (f *Facade) Config() ConfigResponse {
	return ConfigResponse{
		SupportsSearch:         true,
		SupportsGroupRequest:   false,
		SupportedResolutions:   supportedResolutions,
		SupportsMarks:          false,
		SupportsTimescaleMarks: false,
		SupportsTime:           true,
	}
}

// Time returns the current server time, per the UDF /time endpoint.
func (f *Facade) Time() int64 {
	return time.Now().UTC().Unix()
}

// Search matches query against configured symbols by substring on symbol or
// description, case-insensitively, capped at limit results (0 means
// unlimited).
func (f *Facade) Search(query string, limit int) []SearchResult {
	query = strings.ToLower(query)
	var out []SearchResult
	for _, cfg := range f.registry.All() {
		if query != "" &&
			!strings.Contains(strings.ToLower(cfg.Symbol), query) &&
			!strings.Contains(strings.ToLower(cfg.Description), query) {
			continue
		}
		out = append(out, SearchResult{
			Symbol:      cfg.Symbol,
			FullName:    cfg.Symbol,
			Description: cfg.Description,
			Exchange:    "Pangea",
			Type:        "crypto",
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
