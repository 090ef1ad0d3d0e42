package port

import (
	"context"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// StatusCache caches upload status reports per property.
type StatusCache interface {
	GetStatusReport(ctx context.Context, parentID int64) (*model.StatusReport, error)
	SetStatusReport(ctx context.Context, report *model.StatusReport, ttl time.Duration)
	InvalidateStatus(ctx context.Context, parentID int64) error
}

// BufferStash keeps uploaded bytes until the background task has stored them.
type BufferStash interface {
	Put(ctx context.Context, id uuid.UUID, src model.BufferSource) error
	Get(ctx context.Context, id uuid.UUID) (*model.BufferSource, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BreakerBoard publishes breaker snapshots for processes that do not own the breaker.
type BreakerBoard interface {
	PublishBreaker(ctx context.Context, name string, snap breaker.Snapshot, ttl time.Duration) error
	GetBreaker(ctx context.Context, name string) (*breaker.Snapshot, error)
}
