// Package httpapi binds the query façade to the UDF-compatible HTTP
// surface: /config, /time, /symbols, /symbols_meta, /search, /history,
// /candles, /timestamps, /timestamps_meta, plus /live when a broadcaster is
// configured.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"sparkcandles/internal/metrics"
	"sparkcandles/internal/query"
	"sparkcandles/pkg/broadcaster"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server wraps an http.Server bound to the UDF routes.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds a Server listening on addr, serving facade through the
// UDF route set with permissive CORS for browser-based charting clients.
// live, if non-nil, is registered on /live as a WebSocket push feed of
// freshly-folded candles; it's an optional complement to the pull-only UDF
// surface, so a nil live simply omits the route. m, if non-nil, records
// per-endpoint query latency; a nil m disables that recording.
func NewServer(addr string, facade *query.Facade, live *broadcaster.Broadcaster, m *metrics.PrometheusMetrics, logger *zap.Logger) *Server {
	h := &handler{facade: facade, logger: logger, metrics: m}

	router := mux.NewRouter()
	h.registerRoutes(router)
	if live != nil {
		router.HandleFunc("/live", liveHandler(live, logger)).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      c.Handler(router),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: logger,
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down; it
// never returns http.ErrServerClosed as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
