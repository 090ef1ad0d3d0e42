package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/app"
	"github.com/fhuszti/property-media-ms-go/internal/cache"
	"github.com/fhuszti/property-media-ms-go/internal/config"
	"github.com/fhuszti/property-media-ms-go/internal/db"
	"github.com/fhuszti/property-media-ms-go/internal/handler/api"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/metrics"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/task"
	mediaSvc "github.com/fhuszti/property-media-ms-go/internal/usecase/media"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}

	logger.Init()

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
	br := app.NewBreaker(cfg, m)
	gateway := app.NewGateway(cfg, strg, br)

	repo, props, links := app.NewRepositories(database)
	pipeline := app.Pipeline{Repo: repo, Store: gateway, Metrics: m}

	var (
		dispatcher port.TaskDispatcher
		local      *task.LocalDispatcher
		remote     *task.Dispatcher
		store      port.ObjectStore = gateway
	)
	if cfg.RedisAddr != "" {
		statusCache, stash, board := app.RedisStores(cfg)
		pipeline.Cache, pipeline.Stash = statusCache, stash
		store = app.NewSharedStore(gateway, board)
		remote = task.NewDispatcher(cfg.RedisAddr, cfg.RedisPassword)
		dispatcher = remote
		logger.Info(ctx, "✅  Redis enabled: uploads run on the worker")
	} else {
		pipeline.Cache = cache.NewNoop()
		pipeline.Stash = cache.NewMemoryStash(cfg.BufferTTL)
		local = task.NewLocalDispatcher(cfg.WorkerConcurrency)
		local.Bind(app.NewItemProcessor(cfg, pipeline, local))
		dispatcher = local
		logger.Warn(ctx, "⚠️  Redis not configured, uploads run in-process and status caching is disabled")
	}

	submitter := mediaSvc.NewBatchSubmitter(repo, props, pipeline.Stash, dispatcher, pipeline.Cache, store)
	saverSvc := mediaSvc.NewMultimediaSaver(props, links, submitter, pipeline.Cache)
	statusSvc := mediaSvc.NewStatusGetter(repo, props, links, pipeline.Cache, cfg.StatusCacheTTL)
	retrySvc := mediaSvc.NewRetryTrigger(repo, pipeline.Stash, dispatcher, pipeline.Cache, cfg.MaxRetries)

	r := app.NewRouter(ctx, app.Services{
		Saver:        saverSvc,
		Status:       statusSvc,
		Retry:        retrySvc,
		Store:        store,
		Limits:       api.UploadLimits{MaxFileBytes: cfg.MaxUploadBytes, MaxFilesPerField: cfg.MaxFilesPerKind},
		JWTPublicKey: cfg.JWTPublicKey,
		Metrics:      promhttp.Handler(),
	})

	listenRouter(ctx, r, cfg, database, local, remote)
}

func listenRouter(ctx context.Context, r *chi.Mux, cfg *config.Settings, database *db.Database, local *task.LocalDispatcher, remote *task.Dispatcher) {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logger.Errorf(ctx, "❌  Listen error: %v", err)
		os.Exit(1)
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}

	// start serving
	go func() {
		logger.Infof(ctx, "🚀 API listening on %s", srv.Addr)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "❌  Serve error: %v", err)
			os.Exit(1)
		}
	}()

	// block until we get SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "🛑 Shutdown signal received, exiting…")

	// graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "❌  Server shutdown failed: %v", err)
	}
	logger.Info(ctx, "✅  Server gracefully stopped")

	if local != nil {
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelDrain()
		if err := local.Close(drainCtx); err != nil {
			logger.Warnf(ctx, "⚠️  In-process uploads interrupted: %v", err)
		}
	}
	if remote != nil {
		if err := remote.Close(); err != nil {
			logger.Warnf(ctx, "task client close error: %v", err)
		}
	}

	if err := database.Close(); err != nil {
		logger.Errorf(ctx, "DB close error: %v", err)
		os.Exit(1)
	}
}
