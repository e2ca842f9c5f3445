// Package metrics exposes the service's Prometheus gauges/counters/
// histograms and the HTTP server that serves /metrics and /health.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PrometheusMetrics holds every metric this service publishes.
type PrometheusMetrics struct {
	FoldsTotal    *prometheus.CounterVec
	GapFillsTotal *prometheus.CounterVec
	SkippedTotal  *prometheus.CounterVec
	SeriesLength  *prometheus.GaugeVec
	IngestorState *prometheus.GaugeVec
	Reconnects    *prometheus.CounterVec
	QueryLatency  *prometheus.HistogramVec
	ServiceUptime prometheus.Gauge

	registry *prometheus.Registry
	logger   *zap.Logger
	server   *http.Server
}

// NewPrometheusMetrics creates every metric against its own registry, so
// multiple instances (as in tests) never collide on the global default
// registry.
func NewPrometheusMetrics(logger *zap.Logger) *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		logger:   logger,

		FoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sparkcandles_folds_total",
				Help: "Total number of trades folded into a candle series",
			},
			[]string{"symbol", "interval"},
		),

		GapFillsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sparkcandles_gap_fills_total",
				Help: "Total number of flat carry-forward candles inserted",
			},
			[]string{"symbol", "interval"},
		),

		SkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sparkcandles_records_skipped_total",
				Help: "Total number of raw upstream records skipped during decode",
			},
			[]string{"symbol", "reason"},
		),

		SeriesLength: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sparkcandles_series_length",
				Help: "Current number of retained candles per (symbol, interval)",
			},
			[]string{"symbol", "interval"},
		),

		IngestorState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sparkcandles_ingestor_state",
				Help: "Current Ingestor lifecycle state (1=active, 0=inactive) per (symbol, state)",
			},
			[]string{"symbol", "state"},
		),

		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sparkcandles_ingestor_reconnects_total",
				Help: "Total number of reconnect attempts by an Ingestor's live subscription",
			},
			[]string{"symbol"},
		),

		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sparkcandles_query_latency_seconds",
				Help:    "Query façade request latency in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
			},
			[]string{"endpoint"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sparkcandles_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	m.registry.MustRegister(
		m.FoldsTotal,
		m.GapFillsTotal,
		m.SkippedTotal,
		m.SeriesLength,
		m.IngestorState,
		m.Reconnects,
		m.QueryLatency,
		m.ServiceUptime,
	)

	return m
}

// Start starts the metrics HTTP server, serving /metrics and /health.
func (m *PrometheusMetrics) Start(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{Addr: addr, Handler: mux}

	m.logger.Info("starting metrics server", zap.String("addr", addr))

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server.
func (m *PrometheusMetrics) Stop() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.logger.Info("stopping metrics server")
	return m.server.Shutdown(ctx)
}

// RecordFold records one trade folded into (symbol, interval).
func (m *PrometheusMetrics) RecordFold(symbol string, interval int64) {
	m.FoldsTotal.WithLabelValues(symbol, intervalLabel(interval)).Inc()
}

// RecordGapFill records count gap-filled candles inserted into
// (symbol, interval). A count of 0 is a no-op.
func (m *PrometheusMetrics) RecordGapFill(symbol string, interval int64, count int) {
	if count <= 0 {
		return
	}
	m.GapFillsTotal.WithLabelValues(symbol, intervalLabel(interval)).Add(float64(count))
}

// RecordSkipped records one raw record skipped during decode, by reason.
func (m *PrometheusMetrics) RecordSkipped(symbol, reason string) {
	m.SkippedTotal.WithLabelValues(symbol, reason).Inc()
}

// SetSeriesLength sets the current retained length of (symbol, interval).
func (m *PrometheusMetrics) SetSeriesLength(symbol string, interval int64, length int) {
	m.SeriesLength.WithLabelValues(symbol, intervalLabel(interval)).Set(float64(length))
}

// SetIngestorState marks state as the active lifecycle state for symbol,
// zeroing every other known state label.
func (m *PrometheusMetrics) SetIngestorState(symbol string, states []string, active string) {
	for _, s := range states {
		value := 0.0
		if s == active {
			value = 1.0
		}
		m.IngestorState.WithLabelValues(symbol, s).Set(value)
	}
}

// RecordReconnect records one live-subscription reconnect attempt for symbol,
// whether the subscribe call failed or an established stream dropped.
func (m *PrometheusMetrics) RecordReconnect(symbol string) {
	m.Reconnects.WithLabelValues(symbol).Inc()
}

// RecordQueryLatency records how long a query façade endpoint took.
func (m *PrometheusMetrics) RecordQueryLatency(endpoint string, d time.Duration) {
	m.QueryLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetUptime sets the service's current uptime.
func (m *PrometheusMetrics) SetUptime(d time.Duration) {
	m.ServiceUptime.Set(d.Seconds())
}

func intervalLabel(seconds int64) string {
	switch seconds {
	case 60:
		return "1m"
	case 180:
		return "3m"
	case 300:
		return "5m"
	case 900:
		return "15m"
	case 1800:
		return "30m"
	case 3600:
		return "1h"
	case 86400:
		return "1D"
	case 604800:
		return "1W"
	case 2592000:
		return "1M"
	default:
		return "unknown"
	}
}
