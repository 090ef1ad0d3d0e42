package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/app"
	"github.com/fhuszti/property-media-ms-go/internal/config"
	"github.com/fhuszti/property-media-ms-go/internal/db"
	workerHandler "github.com/fhuszti/property-media-ms-go/internal/handler/worker"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/metrics"
	"github.com/fhuszti/property-media-ms-go/internal/task"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}
	logger.Init()

	if cfg.RedisAddr == "" {
		logger.Error(ctx, "⚠️  REDIS_ADDR must be set to run the worker")
		os.Exit(1)
	}

	database, err := app.InitDb(ctx, cfg)
	if err != nil {
		logger.Errorf(ctx, "❌  Failed to connect to db: %v", err)
		os.Exit(1)
	}

	strg, err := app.InitStorage(ctx, cfg)
	if err != nil {
		logger.Errorf(ctx, "❌  %v", err)
		os.Exit(1)
	}

	m := metrics.New("property_media", prometheus.DefaultRegisterer)
	repo, _, _ := app.NewRepositories(database)
	statusCache, stash, board := app.RedisStores(cfg)
	dispatcher := task.NewDispatcher(cfg.RedisAddr, cfg.RedisPassword)

	// the api reports this breaker, it only sees what gets published
	publisher := app.NewBreakerPublisher(board)
	br := app.NewBreaker(cfg, m, publisher.Notify)
	publishCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	go publisher.Run(publishCtx, br)

	processor := app.NewItemProcessor(cfg, app.Pipeline{
		Repo:    repo,
		Stash:   stash,
		Store:   app.NewGateway(cfg, strg, br),
		Cache:   statusCache,
		Metrics: m,
	}, dispatcher)

	mux := asynq.NewServeMux()
	mux.HandleFunc(task.TypeUploadMedia, func(ctx context.Context, t *asynq.Task) error {
		p, err := task.ParseUploadMediaPayload(t)
		if err != nil {
			return err
		}
		return workerHandler.UploadMediaHandler(ctx, p, processor)
	})

	metricsSrv := serveMetrics(ctx, cfg.MetricsPort)
	runWorker(ctx, mux, cfg, database, dispatcher, metricsSrv)
}

func serveMetrics(ctx context.Context, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof(ctx, "📈 Worker metrics on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "❌  Metrics server error: %v", err)
		}
	}()
	return srv
}

func runWorker(ctx context.Context, mux *asynq.ServeMux, cfg *config.Settings, database *db.Database, dispatcher *task.Dispatcher, metricsSrv *http.Server) {
	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{task.QueueUploads: 1},
		ShutdownTimeout: 30 * time.Second,
	})

	// Run server in background
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Errorf(context.Background(), "❌  Worker failed: %v", err)
			os.Exit(1)
		}
	}()
	logger.Info(ctx, "🚀 Worker started", "concurrency", cfg.WorkerConcurrency)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info(ctx, "🛑 Shutdown signal received, exiting…")

	// stop accepting new tasks, finish in-flight within ShutdownTimeout
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf(ctx, "metrics server shutdown error: %v", err)
	}
	if err := dispatcher.Close(); err != nil {
		logger.Warnf(ctx, "task client close error: %v", err)
	}
	if err := database.Close(); err != nil {
		logger.Warnf(ctx, "DB close error: %v", err)
	}
	logger.Info(ctx, "✅  Worker gracefully stopped")
}
