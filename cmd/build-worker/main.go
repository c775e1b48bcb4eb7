package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/edvin/shipstatic/internal/blob"
	"github.com/edvin/shipstatic/internal/config"
	"github.com/edvin/shipstatic/internal/core"
	"github.com/edvin/shipstatic/internal/db"
	"github.com/edvin/shipstatic/internal/logging"
	"github.com/edvin/shipstatic/internal/metrics"
	"github.com/edvin/shipstatic/internal/queue"
	"github.com/edvin/shipstatic/internal/source"
	"github.com/edvin/shipstatic/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ServiceName = "build-worker"

	if err := cfg.Validate("build-worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to catalog database")
	}
	if pool != nil {
		defer pool.Close()
		metrics.RegisterPgxPoolMetrics(pool)
	}

	q, err := queue.NewRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer q.Close()

	workspace, err := source.NewWorkspace(cfg.WorkspaceDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare workspace root")
	}

	var catalog worker.StatusRecorder
	if pool != nil {
		catalog = core.NewDeploymentService(pool)
	}

	w := worker.New(logger, q, blob.NewS3Store(cfg), catalog, workspace, worker.Config{
		InstallCommand:    cfg.InstallCommand,
		BuildCommand:      cfg.BuildCommand,
		OutputDir:         cfg.OutputDir,
		BuildTimeout:      cfg.BuildTimeout,
		UploadConcurrency: cfg.UploadConcurrency,
	})

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, q.Ping)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}
