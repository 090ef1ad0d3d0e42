package media

import (
	"context"
	"fmt"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

type statusGetterSrv struct {
	repo  port.MediaItemRepository
	props port.PropertyRepository
	links port.PropertyLinkRepository
	cache port.StatusCache
	ttl   time.Duration
}

func NewStatusGetter(
	repo port.MediaItemRepository,
	props port.PropertyRepository,
	links port.PropertyLinkRepository,
	cache port.StatusCache,
	ttl time.Duration,
) port.StatusGetter {
	return &statusGetterSrv{repo: repo, props: props, links: links, cache: cache, ttl: ttl}
}

// GetStatus serves the upload rollup of a property with its saved links.
// Only settled reports are cached: a row still in flight may change between
// the ledger read and the cache write, after its invalidation already ran.

func (s *statusGetterSrv) GetStatus(ctx context.Context, parentID int64) (*model.StatusReport, error) {
	ctx = api_context.WithPropertyID(ctx, parentID)

	cached, err := s.cache.GetStatusReport(ctx, parentID)
	if err != nil {
		logger.Warnf(ctx, "⚠️  could not read upload status cache: %v", err)
	}
	if cached != nil {
		return cached, nil
	}

	items, err := s.repo.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("could not list media of property #%d: %w", parentID, err)
	}
	if len(items) == 0 {
		exists, err := s.props.Exists(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("could not check property #%d: %w", parentID, err)
		}
		if !exists {
			return nil, ErrParentNotFound
		}
	}

	links, err := s.links.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("could not list links of property #%d: %w", parentID, err)
	}

	report := model.BuildStatusReport(parentID, items)
	if len(links) > 0 {
		report.Links = links
	}
	if report.Settled() {
		s.cache.SetStatusReport(ctx, report, s.ttl)
	}
	return report, nil
}
