package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/shipstatic/internal/api"
	"github.com/edvin/shipstatic/internal/api/handler"
	"github.com/edvin/shipstatic/internal/blob"
	"github.com/edvin/shipstatic/internal/config"
	"github.com/edvin/shipstatic/internal/core"
	"github.com/edvin/shipstatic/internal/db"
	"github.com/edvin/shipstatic/internal/intake"
	"github.com/edvin/shipstatic/internal/logging"
	"github.com/edvin/shipstatic/internal/metrics"
	"github.com/edvin/shipstatic/internal/queue"
	"github.com/edvin/shipstatic/internal/source"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ServiceName = "intake-api"

	if err := cfg.Validate("intake-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag && cfg.DatabaseURL != "" {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to catalog database")
	}
	if pool != nil {
		defer pool.Close()
		metrics.RegisterPgxPoolMetrics(pool)
	} else {
		logger.Info().Msg("catalog database not configured, listing disabled")
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

	var catalog handler.Catalog
	var recorder intake.Recorder
	if pool != nil {
		svc := core.NewDeploymentService(pool)
		catalog = svc
		recorder = svc
	}

	intakeSvc := intake.NewService(
		logger,
		blob.NewS3Store(cfg),
		q,
		recorder,
		workspace,
		source.NewGitCloner(cfg.CloneTimeout),
		cfg.UploadConcurrency,
	)

	srv := api.NewServer(logger, intakeSvc, q, catalog, pool, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting intake API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
