package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/clock"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/config"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/repository"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/handler"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/scraper"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/service"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	clk, err := clock.New()
	if err != nil {
		logger.Log.Fatal("failed to load home timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
	)

	accountRepo := repository.NewAccountRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)
	committer := repository.NewBatchCommitter(pool)

	runner := scraper.NewYtdlpRunner(cfg.Scraper.PythonPath, cfg.Scraper.AttemptTimeout)
	fetcher := scraper.NewFetcher(runner, &cfg.Scraper, logger.Log)
	writer := service.NewSnapshotWriter(committer, cfg.Tracker.BatchSize, logger.Log)
	analyzer := service.NewGrowthAnalyzer(snapshotRepo)

	// Report publishing is optional; cycles run fine without a broker.
	var publisher service.ReportPublisher
	if cfg.RabbitMQ.Host != "" {
		mp, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("failed to connect to RabbitMQ, reports will not be published",
				zap.Error(err),
			)
		} else {
			publisher = mp
			defer func() { _ = mp.Close() }()
		}
	}

	tracker := service.NewTracker(accountRepo, fetcher, writer, analyzer, publisher, clk, &cfg.Tracker, logger.Log)

	go tracker.Run(ctx, cfg.Tracker.CycleInterval)

	triggerHandler := handler.NewTriggerHandler(tracker, cfg.Tracker.TriggerKey)
	healthHandler := handler.NewHealthHandler(pool, publisher)
	router := handler.NewRouter(triggerHandler, healthHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			_ = server.Close()
		}

		logger.Log.Info("server stopped")
	}
}
