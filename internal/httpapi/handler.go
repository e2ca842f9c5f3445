package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"sparkcandles/internal/metrics"
	"sparkcandles/internal/query"
)

type handler struct {
	facade  *query.Facade
	logger  *zap.Logger
	metrics *metrics.PrometheusMetrics
}

func (h *handler) registerRoutes(router *mux.Router) {
	router.HandleFunc("/config", h.timed("config", h.config)).Methods("GET")
	router.HandleFunc("/time", h.timed("time", h.serverTime)).Methods("GET")
	router.HandleFunc("/symbols", h.timed("symbols", h.symbols)).Methods("GET")
	router.HandleFunc("/symbols_meta", h.timed("symbols_meta", h.symbolsMeta)).Methods("GET")
	router.HandleFunc("/search", h.timed("search", h.search)).Methods("GET")
	router.HandleFunc("/history", h.timed("history", h.history)).Methods("GET")
	router.HandleFunc("/candles", h.timed("candles", h.candles)).Methods("GET")
	router.HandleFunc("/timestamps", h.timed("timestamps", h.timestamps)).Methods("GET")
	router.HandleFunc("/timestamps_meta", h.timed("timestamps_meta", h.timestampsMeta)).Methods("GET")
}

// timed wraps fn so every request against endpoint records its latency,
// when a metrics recorder is configured.
func (h *handler) timed(endpoint string, fn http.HandlerFunc) http.HandlerFunc {
	if h.metrics == nil {
		return fn
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		fn(w, r)
		h.metrics.RecordQueryLatency(endpoint, time.Since(start))
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *handler) config(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.facade.Config())
}

func (h *handler) serverTime(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.facade.Time())
}

func (h *handler) symbols(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeJSON(w, map[string]any{"status": "ok", "symbols": h.facade.Symbols()})
		return
	}

	info, ok := h.facade.Symbol(symbol)
	if !ok {
		h.writeJSON(w, map[string]any{"status": "error", "message": "symbol not found"})
		return
	}
	h.writeJSON(w, info)
}

func (h *handler) symbolsMeta(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{"status": "ok", "metadata": h.facade.SymbolsMeta()})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	h.writeJSON(w, h.facade.Search(q.Get("query"), limit))
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	resolution := q.Get("resolution")
	from, _ := strconv.ParseInt(q.Get("from"), 10, 64)
	to, err := strconv.ParseInt(q.Get("to"), 10, 64)
	if err != nil {
		to = h.facade.Time()
	}
	countback, _ := strconv.Atoi(q.Get("countback"))

	h.writeJSON(w, h.facade.History(symbol, resolution, from, to, countback))
}

func (h *handler) candles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	interval, err := strconv.ParseInt(q.Get("interval"), 10, 64)
	if err != nil {
		h.writeJSON(w, map[string]any{"status": "error", "message": "invalid interval"})
		return
	}
	h.writeJSON(w, h.facade.Candles(symbol, interval))
}

func (h *handler) timestamps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	interval, err := strconv.ParseInt(q.Get("interval"), 10, 64)
	if err != nil {
		h.writeJSON(w, map[string]any{"status": "error", "message": "invalid interval"})
		return
	}
	h.writeJSON(w, map[string]any{"status": "ok", "timestamps": h.facade.Timestamps(symbol, interval)})
}

func (h *handler) timestampsMeta(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	h.writeJSON(w, h.facade.MinMaxTimestamp(symbol))
}
