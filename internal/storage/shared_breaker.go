package storage

import (
	"context"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

const boardReadTimeout = time.Second

// SharedBreakerStore reports the breaker state published by the process that
// runs the uploads. Puts and removals still go through the wrapped store, and
// its own breaker is reported when nothing was published.
type SharedBreakerStore struct {
	port.ObjectStore
	board port.BreakerBoard
	name  string
}

// compile-time check: *SharedBreakerStore must satisfy port.ObjectStore
var _ port.ObjectStore = (*SharedBreakerStore)(nil)

func NewSharedBreakerStore(store port.ObjectStore, board port.BreakerBoard, name string) *SharedBreakerStore {
	return &SharedBreakerStore{ObjectStore: store, board: board, name: name}
}

func (s *SharedBreakerStore) BreakerSnapshot() breaker.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), boardReadTimeout)
	defer cancel()

	snap, err := s.board.GetBreaker(ctx, s.name)
	if err != nil {
		logger.Warnf(ctx, "⚠️  could not read shared state of breaker %q: %v", s.name, err)
	}
	if snap == nil {
		return s.ObjectStore.BreakerSnapshot()
	}
	return *snap
}

// HealthCheck marks the store unhealthy while the shared breaker is open, even
// when this process can still reach it.
func (s *SharedBreakerStore) HealthCheck(ctx context.Context) port.StoreHealth {
	h := s.ObjectStore.HealthCheck(ctx)
	if h.Healthy && s.BreakerSnapshot().State == breaker.StateOpen {
		h.Healthy = false
		h.Detail = breaker.ErrCircuitOpen.Error()
	}
	return h
}
