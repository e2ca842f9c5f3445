// Package pairconfig loads the set of trading pairs this instance tracks
// and owns the per-pair CandleStore registry built from that configuration.
package pairconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"sparkcandles/internal/candle"
)

// defaultDecimals is used when a pair entry omits "decimals", matching the
// older upstream config variant that never carried the field.
const defaultDecimals = 9

// PairConfig describes one tracked trading pair.
type PairConfig struct {
	Symbol      string `json:"symbol"`
	ContractID  string `json:"contract_id"`
	StartBlock  int64  `json:"start_block"`
	Description string `json:"description"`
	Decimals    *int   `json:"decimals,omitempty"`
}

// DecimalsOrDefault returns the configured decimals, or defaultDecimals if
// the pair's config entry didn't specify one.
func (p PairConfig) DecimalsOrDefault() int {
	if p.Decimals == nil {
		return defaultDecimals
	}
	return *p.Decimals
}

// Load reads a JSON array of PairConfig entries from path. This is the
// spec-named pair config file and is deliberately JSON, not YAML — it is
// distinct from the ambient operational config loaded by internal/config.
func Load(path string) ([]PairConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pair config %s: %w", path, err)
	}

	var pairs []PairConfig
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse pair config %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if p.Symbol == "" {
			return nil, fmt.Errorf("pair config %s: entry missing symbol", path)
		}
		if _, dup := seen[p.Symbol]; dup {
			return nil, fmt.Errorf("pair config %s: duplicate symbol %q", path, p.Symbol)
		}
		seen[p.Symbol] = struct{}{}
	}

	return pairs, nil
}

// Registry owns one candle.Store per configured pair, plus the pair's
// static metadata needed to answer UDF symbol/config queries.
type Registry struct {
	pairs  map[string]PairConfig
	stores map[string]*candle.Store
}

// NewRegistry builds a Registry from loaded pair configs, allocating one
// candle.Store per symbol so writers on different pairs never contend.
func NewRegistry(pairs []PairConfig, maxCandles int) *Registry {
	r := &Registry{
		pairs:  make(map[string]PairConfig, len(pairs)),
		stores: make(map[string]*candle.Store, len(pairs)),
	}
	for _, p := range pairs {
		r.pairs[p.Symbol] = p
		r.stores[p.Symbol] = candle.NewStore(maxCandles)
	}
	return r
}

// Store returns the CandleStore for symbol, or nil if the symbol isn't configured.
func (r *Registry) Store(symbol string) *candle.Store {
	return r.stores[symbol]
}

// Config returns the PairConfig for symbol and whether it exists.
func (r *Registry) Config(symbol string) (PairConfig, bool) {
	p, ok := r.pairs[symbol]
	return p, ok
}

// Symbols returns all configured symbols, sorted.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.pairs))
	for s := range r.pairs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// All returns every configured PairConfig, sorted by symbol.
func (r *Registry) All() []PairConfig {
	out := make([]PairConfig, 0, len(r.pairs))
	for _, s := range r.Symbols() {
		out = append(out, r.pairs[s])
	}
	return out
}
