package mock

import (
	"context"
	"sync"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

type EnqueuedUpload struct {
	ID      uuid.UUID
	Attempt int
	Delay   time.Duration
}

// Dispatcher implements port.TaskDispatcher for tests.
type Dispatcher struct {
	mu       sync.Mutex
	Enqueued []EnqueuedUpload
	Err      error
	// FailFor makes the enqueue of a single id fail with Err.
	FailFor *uuid.UUID
}

func (d *Dispatcher) EnqueueUploadMedia(ctx context.Context, id uuid.UUID, attempt int, delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil && (d.FailFor == nil || *d.FailFor == id) {
		return d.Err
	}
	d.Enqueued = append(d.Enqueued, EnqueuedUpload{ID: id, Attempt: attempt, Delay: delay})
	return nil
}
