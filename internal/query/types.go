package query

// Status is the UDF "s" field.
type Status string

const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
	StatusError  Status = "error"
)

// HistoryResponse is the canonical UDF bars payload.
type HistoryResponse struct {
	Status  Status    `json:"s"`
	Time    []int64   `json:"t,omitempty"`
	Open    []float64 `json:"o,omitempty"`
	High    []float64 `json:"h,omitempty"`
	Low     []float64 `json:"l,omitempty"`
	Close   []float64 `json:"c,omitempty"`
	Volume  []float64 `json:"v,omitempty"`
	Message string    `json:"message,omitempty"`
}

// SymbolInfo answers a single-symbol /symbols?symbol=... lookup.
type SymbolInfo struct {
	Symbol               string   `json:"symbol"`
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Type                 string   `json:"type"`
	Exchange             string   `json:"exchange"`
	Timezone             string   `json:"timezone"`
	Minmov               int      `json:"minmov"`
	Pricescale           int      `json:"pricescale"`
	Session              string   `json:"session"`
	HasIntraday          bool     `json:"has_intraday"`
	HasDaily             bool     `json:"has_daily"`
	SupportedResolutions []string `json:"supported_resolutions"`
	IntradayMultipliers  []string `json:"intraday_multipliers"`
	Format               string   `json:"format"`
}

var supportedResolutions = []string{"1", "3", "5", "15", "30", "60", "D", "W", "M"}
var intradayMultipliers = []string{"1", "3", "5", "15", "30", "60"}

// ConfigResponse answers /config.
type ConfigResponse struct {
	SupportsSearch         bool     `json:"supports_search"`
	SupportsGroupRequest   bool     `json:"supports_group_request"`
	SupportedResolutions   []string `json:"supported_resolutions"`
	SupportsMarks          bool     `json:"supports_marks"`
	SupportsTimescaleMarks bool     `json:"supports_timescale_marks"`
	SupportsTime           bool     `json:"supports_time"`
}

// TimestampsMetaResponse answers /timestamps_meta: the earliest and latest
// retained bucket_start for a symbol, taken across all of its intervals.
type TimestampsMetaResponse struct {
	Status Status `json:"s"`
	Min    int64  `json:"min,omitempty"`
	Max    int64  `json:"max,omitempty"`
}

// SearchResult answers one entry of /search.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Exchange    string `json:"exchange"`
	Type        string `json:"type"`
}
