package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	ErrNotBound         = errors.New("dispatcher has no processor bound")
)

// LocalDispatcher runs uploads in-process on at most `concurrency` goroutines.
// It is used when no redis is configured.
type LocalDispatcher struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	processor port.ItemProcessor
	closed    bool
	queued    map[string]*time.Timer
}

// compile-time check
var _ port.TaskDispatcher = (*LocalDispatcher)(nil)

func NewLocalDispatcher(concurrency int) *LocalDispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalDispatcher{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		ctx:    ctx,
		cancel: cancel,
		queued: make(map[string]*time.Timer),
	}
}

// Bind sets the processor run for every task. The processor usually needs the
// dispatcher itself to schedule retries, hence the late binding.
func (d *LocalDispatcher) Bind(p port.ItemProcessor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processor = p
}

func (d *LocalDispatcher) EnqueueUploadMedia(ctx context.Context, id uuid.UUID, attempt int, delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	if d.processor == nil {
		return ErrNotBound
	}

	key := UploadTaskID(id.String(), attempt)
	if _, ok := d.queued[key]; ok {
		logger.Infof(ctx, "upload attempt %d of media #%s is already queued", attempt, id)
		return nil
	}

	if delay <= 0 {
		d.queued[key] = nil
		d.startLocked(key, id, attempt)
		return nil
	}

	d.queued[key] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		d.startLocked(key, id, attempt)
	})
	return nil
}

func (d *LocalDispatcher) startLocked(key string, id uuid.UUID, attempt int) {
	p := d.processor
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.forget(key)

		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)

		if err := p.ProcessItem(d.ctx, port.ProcessItemInput{ID: id, Attempt: attempt}); err != nil {
			logger.Errorf(d.ctx, "❌  upload attempt %d of media #%s failed: %v", attempt, id, err)
		}
	}()
}

func (d *LocalDispatcher) forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queued, key)
}

// Close drops delayed tasks and waits for running ones until ctx is done,
// at which point their context is cancelled.
func (d *LocalDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for key, t := range d.queued {
		if t != nil && t.Stop() {
			delete(d.queued, key)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
