package testutil

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/app"
	"github.com/fhuszti/property-media-ms-go/internal/config"
	workerHandler "github.com/fhuszti/property-media-ms-go/internal/handler/worker"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/task"
	"github.com/hibiken/asynq"
)

// StartWorker starts an asynq worker processing upload tasks.
// It returns a function to gracefully shut down the worker.
func StartWorker(cfg *config.Settings, p app.Pipeline, redisAddr string) func() {
	dispatcher := task.NewDispatcher(redisAddr, "")
	processor := app.NewItemProcessor(cfg, p, dispatcher)

	mux := asynq.NewServeMux()
	mux.HandleFunc(task.TypeUploadMedia, func(ctx context.Context, t *asynq.Task) error {
		pl, err := task.ParseUploadMediaPayload(t)
		if err != nil {
			return err
		}
		return workerHandler.UploadMediaHandler(ctx, pl, processor)
	})

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{task.QueueUploads: 1},
	})
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Errorf(context.Background(), "worker stopped: %v", err)
		}
	}()

	return func() {
		srv.Shutdown()
		_ = dispatcher.Close()
	}
}
