package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

const (
	permanentlySkippedPrefix = "permanently skipped: "
	manualRetryMessage       = "manual retry requested"
	noLongerFailedReason     = "no longer failed"
)

type retryTriggerSrv struct {
	repo       port.MediaItemRepository
	stash      port.BufferStash
	tasks      port.TaskDispatcher
	cache      port.StatusCache
	maxRetries int
}

func NewRetryTrigger(repo port.MediaItemRepository, stash port.BufferStash, tasks port.TaskDispatcher, cache port.StatusCache, maxRetries int) port.RetryTrigger {
	return &retryTriggerSrv{repo: repo, stash: stash, tasks: tasks, cache: cache, maxRetries: maxRetries}
}

// RetryFailed re-queues the failed rows of a property that still have a source.
// Rows that used up their retries are only re-queued with Force.
func (s *retryTriggerSrv) RetryFailed(ctx context.Context, in port.RetryFailedInput) (*model.RetrySummary, error) {
	ctx = api_context.WithPropertyID(ctx, in.ParentID)

	items, err := s.repo.ListFailedByParent(ctx, in.ParentID)
	if err != nil {
		return nil, fmt.Errorf("could not list failed media of property #%d: %w", in.ParentID, err)
	}

	summary := &model.RetrySummary{
		ParentID:  in.ParentID,
		QueuedIDs: []uuid.UUID{},
		Skips:     []model.RetrySkip{},
	}
	if len(items) == 0 {
		return summary, nil
	}

	changed := false
	for _, item := range items {
		if item.RetryCount >= s.maxRetries && !in.Force {
			summary.Exhausted++
			continue
		}

		reason, mutated := s.retry(ctx, item)
		changed = changed || mutated
		if reason != "" {
			summary.Skipped++
			summary.Skips = append(summary.Skips, model.RetrySkip{ID: item.ID, Reason: reason})
			continue
		}
		summary.Queued++
		summary.QueuedIDs = append(summary.QueuedIDs, item.ID)
	}

	if changed {
		if err := s.cache.InvalidateStatus(ctx, in.ParentID); err != nil {
			logger.Warnf(ctx, "⚠️  could not invalidate upload status cache: %v", err)
		}
	}
	logger.Infof(ctx, "🔁  retry of property #%d: %d queued, %d skipped, %d exhausted",
		in.ParentID, summary.Queued, summary.Skipped, summary.Exhausted)
	return summary, nil
}

// retry re-queues one row and returns why it was skipped, if it was.
func (s *retryTriggerSrv) retry(ctx context.Context, item *model.MediaItem) (skipReason string, mutated bool) {
	ok, err := s.recoverable(ctx, item)
	if err != nil {
		logger.Warnf(ctx, "⚠️  could not check source of media #%s: %v", item.ID, err)
		return "could not check source: " + err.Error(), false
	}
	if !ok {
		if item.ErrorMessage != nil && strings.HasPrefix(*item.ErrorMessage, permanentlySkippedPrefix) {
			return ErrSourceUnavailable.Error(), false
		}
		if err := s.repo.MarkFailed(ctx, item.ID, model.UploadStatusFailed, permanentlySkippedPrefix+ErrSourceUnavailable.Error()); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				return noLongerFailedReason, false
			}
			logger.Errorf(ctx, "❌  could not mark media #%s as skipped: %v", item.ID, err)
			return ErrSourceUnavailable.Error(), false
		}
		return ErrSourceUnavailable.Error(), true
	}

	msg := manualRetryMessage
	if item.ErrorMessage != nil && *item.ErrorMessage != "" {
		msg = *item.ErrorMessage
	}
	if err := s.repo.MarkRetrying(ctx, item.ID, model.UploadStatusFailed, msg); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			logger.Infof(ctx, "media #%s is no longer failed, leaving it alone", item.ID)
			return noLongerFailedReason, false
		}
		logger.Errorf(ctx, "❌  could not mark media #%s as retrying: %v", item.ID, err)
		return "could not update status: " + err.Error(), false
	}

	if err := s.tasks.EnqueueUploadMedia(ctx, item.ID, item.RetryCount, 0); err != nil {
		reason := "could not schedule retry: " + err.Error()
		if markErr := s.repo.MarkFailed(ctx, item.ID, model.UploadStatusRetrying, reason); markErr != nil {
			logger.Errorf(ctx, "❌  could not mark media #%s as failed: %v", item.ID, markErr)
		}
		return reason, true
	}
	return "", true
}

func (s *retryTriggerSrv) recoverable(ctx context.Context, item *model.MediaItem) (bool, error) {
	if item.HasSourceURL() {
		return true, nil
	}
	return s.stash.Exists(ctx, item.ID)
}
