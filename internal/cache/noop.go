package cache

import (
	"context"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

type NoopCache struct{}

// compile-time check: *NoopCache must satisfy port.StatusCache
var _ port.StatusCache = (*NoopCache)(nil)

func NewNoop() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) GetStatusReport(ctx context.Context, parentID int64) (*model.StatusReport, error) {
	return nil, nil // always cache miss
}

func (n *NoopCache) SetStatusReport(ctx context.Context, report *model.StatusReport, ttl time.Duration) {
}

func (n *NoopCache) InvalidateStatus(ctx context.Context, parentID int64) error { return nil }
