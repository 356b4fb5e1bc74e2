package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"scribe/internal/adapters/ai"
	"scribe/internal/adapters/config"
	"scribe/internal/adapters/errors/noop"
	"scribe/internal/adapters/errors/sentry"
	"scribe/internal/adapters/postgres"
	usagedomain "scribe/internal/domain/usage"
	"scribe/internal/events"
	"scribe/internal/metrics"
	"scribe/internal/repository/memory"
	pgrepo "scribe/internal/repository/postgres"
	usagesvc "scribe/internal/services/usage"
	"scribe/internal/workers"
	"scribe/pkg/errors"
	"scribe/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger storage: postgres when configured, in-memory otherwise
	repo, closeRepo := initLedger(ctx, cfg, log)
	defer closeRepo()

	registry := ai.BuildRegistry(cfg.AI)
	log.Infof("AI providers registered: %v (active: %s)", registry.List(), registry.Active())

	usageService := usagesvc.NewService(repo, registry.PricingBook())

	sink := initEventSink(cfg, log)
	defer sink.Close()

	manager := ai.NewManager(registry, usageService, sink, ai.ManagerOptions{
		Preamble:        cfg.AI.PromptPreamble,
		VisualStyle:     cfg.AI.VisualStyle,
		DefaultLanguage: cfg.AI.DefaultLanguage,
	})

	if err := manager.TestConnection(ctx, ""); err != nil {
		log.Warnf("Active provider connection check failed: %v", err)
	}

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewRetentionWorker(
		usageService,
		cfg.Usage.RetentionDays,
		cfg.Usage.CleanupInterval,
		cfg.Usage.CleanupEnabled,
	))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.ListenAddr, log)
	}

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initLedger picks the usage ledger backend from configuration.
func initLedger(ctx context.Context, cfg *config.Config, log *logger.Logger) (usagedomain.Repository, func()) {
	if !cfg.Postgres.Configured() {
		log.Info("No database configured, using in-memory usage ledger")
		return memory.NewUsageRepository(), func() {}
	}

	client, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := pgrepo.EnsureSchema(ctx, client.DB()); err != nil {
		log.Fatalf("Failed to prepare usage schema: %v", err)
	}

	log.Info("Usage ledger backed by PostgreSQL")
	return pgrepo.NewUsageRepository(client.DB()), func() { _ = client.Close() }
}

// initEventSink picks the operation-event transport from configuration.
func initEventSink(cfg *config.Config, log *logger.Logger) events.Sink {
	if !cfg.Kafka.Configured() {
		log.Info("No Kafka brokers configured, events go to the log")
		return events.NewLogSink()
	}

	log.Infof("Publishing AI events to Kafka topic %s", cfg.Kafka.Topic)
	return events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// startMetricsServer exposes Prometheus metrics
func startMetricsServer(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	go func() {
		log.Infof("Metrics server listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, scheduler *workers.Scheduler, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
