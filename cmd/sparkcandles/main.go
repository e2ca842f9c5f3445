package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sparkcandles/internal/candle"
	"sparkcandles/internal/config"
	"sparkcandles/internal/httpapi"
	"sparkcandles/internal/ingest"
	"sparkcandles/internal/metrics"
	"sparkcandles/internal/notify"
	"sparkcandles/internal/pairconfig"
	"sparkcandles/internal/pangea"
	"sparkcandles/internal/query"
	"sparkcandles/internal/supervisor"
	"sparkcandles/pkg/broadcaster"
	redisclient "sparkcandles/pkg/redis"
)

// App wires every component of the candle service together: configuration,
// the per-pair ingest pipeline, and the UDF query surface.
type App struct {
	config      *config.Config
	logger      *zap.Logger
	registry    *pairconfig.Registry
	facade      *query.Facade
	httpServer  *httpapi.Server
	metrics     *metrics.PrometheusMetrics
	notifier    *notify.Publisher
	broadcaster *broadcaster.Broadcaster
	supervisor  *supervisor.Supervisor

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	fmt.Println("sparkcandles - real-time OHLCV aggregation for Pangea order-book markets")

	app := &App{}

	if err := app.initialize(); err != nil {
		fmt.Printf("failed to initialize sparkcandles: %v\n", err)
		os.Exit(1)
	}

	if err := app.start(); err != nil {
		fmt.Printf("failed to start sparkcandles: %v\n", err)
		os.Exit(1)
	}

	app.waitForShutdown()

	if err := app.shutdown(); err != nil {
		fmt.Printf("error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("sparkcandles stopped gracefully")
}

func (app *App) initialize() error {
	var err error

	app.ctx, app.cancel = context.WithCancel(context.Background())

	app.logger, err = setupLogger()
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}

	app.logger.Info("initializing sparkcandles")

	opsConfigPath := os.Getenv("SPARKCANDLES_CONFIG")
	if opsConfigPath == "" {
		opsConfigPath = "configs/config.yaml"
	}
	app.config, err = config.NewConfigLoader().LoadConfig(opsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load operational config: %w", err)
	}

	pairs, err := pairconfig.Load(app.config.Pairs.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load pair config: %w", err)
	}
	app.registry = pairconfig.NewRegistry(pairs, app.config.Pairs.MaxCandles)
	app.logger.Info("pair config loaded", zap.Int("pairs", len(pairs)))

	app.facade = query.NewFacade(app.registry)
	app.broadcaster = broadcaster.NewBroadcaster(app.logger)

	if app.config.Monitoring.MetricsEnabled {
		app.metrics = metrics.NewPrometheusMetrics(app.logger)
	}

	app.httpServer = httpapi.NewServer(resolveAddr(app.config.HTTP.Addr), app.facade, app.broadcaster, app.metrics, app.logger)

	redisClient, err := redisclient.Connect(redisclient.ClientConfig{
		Addr:       app.config.GetRedisAddress(),
		DB:         app.config.GetRedisDatabase(),
		Password:   app.config.Redis.Password,
		PoolSize:   app.config.Redis.PoolSize,
		MaxRetries: 3,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.notifier = notify.NewPublisher(redisClient, app.logger)

	app.supervisor = supervisor.NewSupervisor(app.logger)
	if err := app.registerIngestors(); err != nil {
		return fmt.Errorf("failed to register ingestors: %w", err)
	}

	app.logger.Info("core components initialized")
	return nil
}

func setupLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}

func resolveAddr(configAddr string) string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return ":" + port
	}
	if configAddr != "" {
		return configAddr
	}
	return ":8080"
}

// registerIngestors builds one Ingestor per configured pair against a
// shared Pangea connector, and hands each to the supervisor as a worker.
func (app *App) registerIngestors() error {
	username := os.Getenv("PANGEA_USERNAME")
	password := os.Getenv("PANGEA_PASSWORD")
	url := os.Getenv("PANGEA_URL")
	chain := os.Getenv("CHAIN")
	if url == "" {
		url = app.config.Ingest.PangeaURL
	}

	connector := pangea.NewConnector(url, username, password, chain, app.logger)

	ingestCfg := ingest.Config{
		InitialBackoff: config.Duration(app.config.Ingest.InitialBackoff, time.Second),
		MaxBackoff:     config.Duration(app.config.Ingest.MaxBackoff, 60*time.Second),
		BackoffFactor:  app.config.Ingest.BackoffFactor,
	}

	maxRetries := app.config.Ingest.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}

	for _, pair := range app.registry.All() {
		store := app.registry.Store(pair.Symbol)
		ingestor := ingest.NewIngestor(pair, store, connector, app.logger, ingestCfg, app.metrics)
		ingestor.OnFold = app.onFold(pair.Symbol)

		workerConfig := supervisor.WorkerConfig{
			Name:           fmt.Sprintf("%s-ingestor", pair.Symbol),
			Symbol:         pair.Symbol,
			MaxRetries:     maxRetries,
			InitialBackoff: ingestCfg.InitialBackoff,
			MaxBackoff:     ingestCfg.MaxBackoff,
			BackoffFactor:  ingestCfg.BackoffFactor,
		}

		if err := app.supervisor.AddWorker(workerConfig, ingestor.Run); err != nil {
			return fmt.Errorf("register ingestor for %s: %w", pair.Symbol, err)
		}

		app.logger.Info("registered pair ingestor",
			zap.String("symbol", pair.Symbol),
			zap.String("contract_id", pair.ContractID))
	}

	return nil
}

// onFold publishes symbol's freshly-folded candles to Redis pub/sub and the
// local dashboard broadcaster. It is intentionally best-effort: a missed
// push notification never affects the authoritative CandleStore.
func (app *App) onFold(symbol string) func(string) {
	return func(_ string) {
		app.notifier.PublishLatest(app.ctx, symbol, app.registry)

		store := app.registry.Store(symbol)
		if store == nil {
			return
		}
		latest := store.Last(symbol, candle.Interval1m, 1)
		if len(latest) == 0 {
			return
		}
		payload, err := json.Marshal(notify.CandleUpdate{
			Symbol:   symbol,
			Interval: int64(candle.Interval1m),
			Candle:   latest[0],
		})
		if err != nil {
			return
		}
		app.broadcaster.Broadcast(payload)
	}
}

func (app *App) start() error {
	app.logger.Info("starting sparkcandles")

	go app.broadcaster.Run()

	if app.metrics != nil {
		if err := app.metrics.Start(app.config.Monitoring.MetricsAddr); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil {
			app.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	if err := app.supervisor.Start(); err != nil {
		return fmt.Errorf("failed to start supervisor: %w", err)
	}

	app.printStartupSummary()
	return nil
}

func (app *App) printStartupSummary() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("sparkcandles started — tracking %d pairs\n", len(app.registry.Symbols()))
	fmt.Printf("UDF query surface: %s\n", resolveAddr(app.config.HTTP.Addr))
	fmt.Println(strings.Repeat("=", 72))
}

func (app *App) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	app.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}

func (app *App) shutdown() error {
	app.logger.Info("shutting down sparkcandles")

	app.cancel()

	if err := app.supervisor.Stop(); err != nil {
		app.logger.Error("error stopping supervisor", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("error stopping HTTP server", zap.Error(err))
	}

	if app.metrics != nil {
		if err := app.metrics.Stop(); err != nil {
			app.logger.Error("error stopping metrics server", zap.Error(err))
		}
	}

	if err := app.notifier.Close(); err != nil {
		app.logger.Error("error closing notifier", zap.Error(err))
	}

	app.logger.Info("sparkcandles shutdown complete")
	return nil
}
