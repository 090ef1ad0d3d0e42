package media

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

// ItemProcessorDeps groups the collaborators of the item processor.
type ItemProcessorDeps struct {
	Repo        port.MediaItemRepository
	Stash       port.BufferStash
	Resolver    port.MediaResolver
	Transformer port.MediaTransformer
	Keys        port.KeyBuilder
	Store       port.ObjectStore
	Tasks       port.TaskDispatcher
	Cache       port.StatusCache
	Metrics     port.PipelineMetrics
}

type itemProcessorSrv struct {
	ItemProcessorDeps
	maxRetries int
	retryDelay RetryDelayPolicy
	now        func() time.Time
}

func NewItemProcessor(deps ItemProcessorDeps, maxRetries int, retryDelay RetryDelayPolicy) port.ItemProcessor {
	return &itemProcessorSrv{ItemProcessorDeps: deps, maxRetries: maxRetries, retryDelay: retryDelay, now: time.Now}
}

// ProcessItem runs one upload attempt. Failures of the attempt itself are
// recorded on the row and not returned; an error means the ledger could not be
// updated.
func (s *itemProcessorSrv) ProcessItem(ctx context.Context, in port.ProcessItemInput) error {
	ctx = api_context.WithMediaID(ctx, in.ID)

	item, err := s.Repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			logger.Warnf(ctx, "⚠️  media #%s no longer exists, dropping upload attempt %d", in.ID, in.Attempt)
			return nil
		}
		return fmt.Errorf("could not load media #%s: %w", in.ID, err)
	}
	ctx = api_context.WithPropertyID(ctx, item.ParentID)

	if err := s.Repo.MarkUploading(ctx, item.ID); err != nil {
		if errors.Is(err, ErrNotClaimable) {
			logger.Infof(ctx, "media #%s is %s, nothing to upload", item.ID, item.Status)
			return nil
		}
		return fmt.Errorf("could not claim media #%s: %w", item.ID, err)
	}
	s.invalidate(ctx, item.ParentID)

	s.Metrics.IncInProgress()
	defer s.Metrics.DecInProgress()
	start := s.now()

	key, meta, err := s.attempt(ctx, item)

	// the row must leave "uploading" even when the attempt was cancelled
	wctx := context.WithoutCancel(ctx)
	if err == nil {
		if err = s.Repo.MarkCompleted(wctx, item.ID, key, meta); err == nil {
			s.completed(wctx, item, key, meta, start)
			return nil
		}
		err = fmt.Errorf("could not record completion: %w", err)
	}
	return s.fail(wctx, item, in.Attempt, err, start)
}

func (s *itemProcessorSrv) attempt(ctx context.Context, item *model.MediaItem) (key string, meta model.Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "❌  panic while uploading media #%s: %v\n%s", item.ID, r, debug.Stack())
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	src, err := s.source(ctx, item)
	if err != nil {
		return "", meta, err
	}
	resolved, err := s.Resolver.Resolve(ctx, src, item.ID)
	if err != nil {
		return "", meta, err
	}

	out := resolved
	transformed, err := s.Transformer.Transform(resolved)
	switch {
	case err != nil:
		logger.Warnf(ctx, "⚠️  could not optimise media #%s, uploading the original: %v", item.ID, err)
	case transformed != nil:
		out = transformed
	}
	meta = s.Transformer.Inspect(out.MimeType, out.Data)
	meta.Optimised = out != resolved

	key = s.Keys.BuildKey(item.ParentID, item.Kind, out.Filename, item.ID)
	stored, err := s.Store.Put(ctx, out.Data, key, out.MimeType)
	if err != nil {
		return "", meta, err
	}
	return stored, meta, nil
}

// source prefers the remote url so a retry always refetches; uploaded files come from the stash.
func (s *itemProcessorSrv) source(ctx context.Context, item *model.MediaItem) (model.MediaSource, error) {
	if item.HasSourceURL() {
		return model.RemoteSource{URL: *item.SourceURL}, nil
	}
	buf, err := s.Stash.Get(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("could not read stashed upload: %w", err)
	}
	if buf == nil {
		return nil, ErrSourceUnavailable
	}
	return *buf, nil
}

func (s *itemProcessorSrv) completed(ctx context.Context, item *model.MediaItem, key string, meta model.Metadata, start time.Time) {
	if !item.HasSourceURL() {
		if err := s.Stash.Delete(ctx, item.ID); err != nil {
			logger.Warnf(ctx, "⚠️  could not drop stashed upload of media #%s: %v", item.ID, err)
		}
	}
	s.invalidate(ctx, item.ParentID)
	s.Metrics.RecordUpload(string(item.Kind), port.OutcomeCompleted, s.now().Sub(start), meta.SizeBytes)
	logger.Infof(ctx, "✅  media #%s stored at %q", item.ID, key)
}

// fail records a failed attempt. A circuit-open failure with retries left is
// parked in "retrying" and rescheduled; everything else ends in "failed".
// The next attempt number always moves past the current one, even when the
// retry count could not be stored.
func (s *itemProcessorSrv) fail(ctx context.Context, item *model.MediaItem, attempt int, cause error, start time.Time) error {
	msg := model.TruncateErrorMessage(cause.Error())

	retryCount := item.RetryCount
	if err := s.Repo.IncrementRetry(ctx, item.ID); err != nil {
		logger.Errorf(ctx, "❌  could not increment retry count of media #%s: %v", item.ID, err)
	} else {
		retryCount++
	}
	next := max(retryCount, attempt+1)

	outcome := port.OutcomeFailed
	if errors.Is(cause, breaker.ErrCircuitOpen) && next < s.maxRetries {
		var ok bool
		if ok, msg = s.scheduleRetry(ctx, item, next, msg, cause); ok {
			outcome = port.OutcomeRetrying
		}
	}

	if outcome == port.OutcomeFailed {
		if err := s.Repo.MarkFailed(ctx, item.ID, model.UploadStatusUploading, msg); err != nil {
			logger.Errorf(ctx, "❌  could not mark media #%s as failed: %v", item.ID, err)
			return fmt.Errorf("could not record failure of media #%s: %w", item.ID, err)
		}
		logger.Warnf(ctx, "⚠️  upload of media #%s failed after %d attempt(s): %s", item.ID, next, msg)
	}

	s.invalidate(ctx, item.ParentID)
	s.Metrics.RecordUpload(string(item.Kind), outcome, s.now().Sub(start), 0)
	return nil
}

func (s *itemProcessorSrv) scheduleRetry(ctx context.Context, item *model.MediaItem, attempt int, msg string, cause error) (bool, string) {
	if err := s.Repo.MarkRetrying(ctx, item.ID, model.UploadStatusUploading, msg); err != nil {
		logger.Errorf(ctx, "❌  could not mark media #%s as retrying: %v", item.ID, err)
		return false, msg
	}

	delay := s.retryDelay.Delay(cause)
	if err := s.Tasks.EnqueueUploadMedia(ctx, item.ID, attempt, delay); err != nil {
		logger.Errorf(ctx, "❌  could not schedule retry of media #%s: %v", item.ID, err)
		return false, model.TruncateErrorMessage(msg + "; could not schedule retry: " + err.Error())
	}

	logger.Infof(ctx, "🔁  store unavailable, media #%s retries in %s (attempt %d/%d)", item.ID, delay, attempt+1, s.maxRetries)
	return true, msg
}

func (s *itemProcessorSrv) invalidate(ctx context.Context, parentID int64) {
	if err := s.Cache.InvalidateStatus(ctx, parentID); err != nil {
		logger.Warnf(ctx, "⚠️  could not invalidate upload status cache of property #%d: %v", parentID, err)
	}
}
