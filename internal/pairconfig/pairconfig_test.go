package pairconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_DefaultsDecimalsWhenOmitted(t *testing.T) {
	path := writeTempConfig(t, `[
		{"symbol":"BTC-USD","contract_id":"0x01","start_block":100,"description":"Bitcoin"}
	]`)

	pairs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("want 1 pair, got %d", len(pairs))
	}
	if got := pairs[0].DecimalsOrDefault(); got != defaultDecimals {
		t.Errorf("decimals = %d, want default %d", got, defaultDecimals)
	}
}

func TestLoad_RespectsExplicitDecimals(t *testing.T) {
	path := writeTempConfig(t, `[
		{"symbol":"ETH-USD","contract_id":"0x02","start_block":50,"description":"Ether","decimals":6}
	]`)

	pairs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := pairs[0].DecimalsOrDefault(); got != 6 {
		t.Errorf("decimals = %d, want 6", got)
	}
}

func TestLoad_RejectsDuplicateSymbols(t *testing.T) {
	path := writeTempConfig(t, `[
		{"symbol":"BTC-USD","contract_id":"0x01","start_block":100,"description":"a"},
		{"symbol":"BTC-USD","contract_id":"0x03","start_block":200,"description":"b"}
	]`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate symbol")
	}
}

func TestLoad_RejectsMissingSymbol(t *testing.T) {
	path := writeTempConfig(t, `[{"contract_id":"0x01","start_block":100,"description":"a"}]`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing symbol")
	}
}

func TestRegistry_OneStorePerSymbol(t *testing.T) {
	pairs := []PairConfig{
		{Symbol: "BTC-USD", ContractID: "0x01", StartBlock: 1, Description: "Bitcoin"},
		{Symbol: "ETH-USD", ContractID: "0x02", StartBlock: 2, Description: "Ether"},
	}
	reg := NewRegistry(pairs, 1000)

	btc := reg.Store("BTC-USD")
	eth := reg.Store("ETH-USD")
	if btc == nil || eth == nil {
		t.Fatal("expected stores for both configured symbols")
	}
	if btc == eth {
		t.Fatal("expected distinct stores per symbol")
	}
	if reg.Store("DOGE-USD") != nil {
		t.Fatal("expected nil store for unconfigured symbol")
	}

	got := reg.Symbols()
	want := []string{"BTC-USD", "ETH-USD"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
}

func TestRegistry_Config(t *testing.T) {
	pairs := []PairConfig{{Symbol: "BTC-USD", ContractID: "0x01", StartBlock: 1, Description: "Bitcoin"}}
	reg := NewRegistry(pairs, 1000)

	cfg, ok := reg.Config("BTC-USD")
	if !ok || cfg.Description != "Bitcoin" {
		t.Fatalf("Config(BTC-USD) = %+v, ok=%v", cfg, ok)
	}
	if _, ok := reg.Config("NOPE"); ok {
		t.Fatal("expected ok=false for unconfigured symbol")
	}
}
