package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gestionar/internal/cache"
	"gestionar/internal/config"
	"gestionar/internal/datastore"
	"gestionar/internal/infra"
	"gestionar/internal/ledger"
	"gestionar/internal/metrics"
	"gestionar/internal/register"
	"gestionar/internal/router"
	"gestionar/internal/sales"
	"gestionar/internal/scheduler"
	"gestionar/internal/worker"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Core components, constructed once and passed by reference everywhere.
	ledgerClient := ledger.New(cfg.UpstreamBaseURL, cfg.UpstreamToken)
	dataCache := cache.New()
	datasets := datastore.New(dataCache, ledgerClient)
	controller := register.NewController(ledgerClient, datasets)
	metricsSvc := metrics.NewService(datasets, controller)
	coordinator := sales.NewCoordinator(controller, datasets, ledgerClient, cfg.StrictStockCheck)

	// A committed sale re-derives the dashboard off the request path.
	coordinator.OnCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := metricsSvc.Dashboard(ctx); err != nil {
			log.Warn().Err(err).Msg("metrics recomputation after sale failed")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Worker pool for async tasks (closing summary emails, PDF reports).
	// Handlers are wired here (composition root) so the pool has full access
	// to all infrastructure dependencies.
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	handlers := &worker.Handlers{
		Email:  worker.NewEmailWorker(mailer),
		Report: worker.NewReportWorker(datasets, mailer, cfg.PDFStoragePath),
	}
	worker.StartPool(ctx, rdb, handlers, cfg.WorkerPoolSize)

	// Periodic refresh: register state on a short period, dataset-dependent
	// dashboard cards on a long one.
	sched := scheduler.New(
		time.Duration(cfg.RegisterRefreshSeconds)*time.Second,
		time.Duration(cfg.DatasetRefreshSeconds)*time.Second,
		func(ctx context.Context) { controller.Refresh(ctx) },
		func(ctx context.Context) {
			datasets.Invalidate(datastore.KeyProducts, datastore.KeyClients, datastore.KeyDailyReport)
			if _, err := metricsSvc.Dashboard(ctx); err != nil {
				log.Warn().Err(err).Msg("scheduled metrics refresh failed")
			}
		},
	)
	sched.Start(ctx)
	defer sched.Stop()

	// Prime the snapshot so the first dashboard request is served warm.
	controller.Refresh(ctx)

	r := router.New(router.Deps{
		Config:      cfg,
		Redis:       rdb,
		Ledger:      ledgerClient,
		Cache:       dataCache,
		Datasets:    datasets,
		Register:    controller,
		Metrics:     metricsSvc,
		Coordinator: coordinator,
		Dispatcher:  dispatcher,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("GestionAR back-office listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
