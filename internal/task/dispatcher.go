package task

import (
	"context"
	"errors"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"github.com/hibiken/asynq"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type Dispatcher struct {
	client enqueuer
}

// compile-time check
var _ port.TaskDispatcher = (*Dispatcher)(nil)

func NewDispatcher(addr, password string) *Dispatcher {
	c := asynq.NewClient(asynq.RedisClientOpt{Addr: addr, Password: password})
	return &Dispatcher{client: c}
}

// EnqueueUploadMedia queues one attempt. Asynq never retries it on its own:
// the retry policy lives with the item processor.
func (d *Dispatcher) EnqueueUploadMedia(ctx context.Context, id uuid.UUID, attempt int, delay time.Duration) error {
	t, err := NewUploadMediaTask(id.String(), attempt)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.TaskID(UploadTaskID(id.String(), attempt)),
		asynq.Queue(QueueUploads),
		asynq.MaxRetry(0),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	if _, err := d.client.EnqueueContext(ctx, t, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.Infof(ctx, "upload attempt %d of media #%s is already queued", attempt, id)
			return nil
		}
		return err
	}
	return nil
}

func (d *Dispatcher) Close() error {
	return d.client.Close()
}
