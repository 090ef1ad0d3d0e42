package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

type batchSubmitterSrv struct {
	repo    port.MediaItemRepository
	props   port.PropertyRepository
	stash   port.BufferStash
	tasks   port.TaskDispatcher
	cache   port.StatusCache
	objects port.ObjectRemover
	now     func() time.Time
}

func NewBatchSubmitter(
	repo port.MediaItemRepository,
	props port.PropertyRepository,
	stash port.BufferStash,
	tasks port.TaskDispatcher,
	cache port.StatusCache,
	objects port.ObjectRemover,
) port.BatchSubmitter {
	return &batchSubmitterSrv{repo: repo, props: props, stash: stash, tasks: tasks, cache: cache, objects: objects, now: time.Now}
}

// SubmitBatch persists one pending row per spec and schedules each for upload.
// Only invalid input or a missing property fail the call; scheduling problems
// end up on the row itself.
func (s *batchSubmitterSrv) SubmitBatch(ctx context.Context, in port.SubmitBatchInput) ([]*model.MediaItem, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, spec := range in.Items {
		if err := validateSpec(spec); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	ctx = api_context.WithPropertyID(ctx, in.ParentID)
	exists, err := s.props.Exists(ctx, in.ParentID)
	if err != nil {
		return nil, fmt.Errorf("could not check property #%d: %w", in.ParentID, err)
	}
	if !exists {
		return nil, ErrParentNotFound
	}

	now := s.now().UTC()
	items := make([]*model.MediaItem, 0, len(in.Items))
	var stashed []uuid.UUID
	for _, spec := range in.Items {
		item := newPendingItem(in.ParentID, spec, now)
		if buf, ok := bufferOf(spec.Source); ok {
			if err := s.stash.Put(ctx, item.ID, buf); err != nil {
				s.dropStashed(ctx, stashed)
				return nil, fmt.Errorf("could not stash upload %q: %w", buf.Filename, err)
			}
			stashed = append(stashed, item.ID)
		}
		items = append(items, item)
	}

	superseded, err := s.persist(ctx, in, items)
	if err != nil {
		s.dropStashed(ctx, stashed)
		return nil, err
	}
	if err := s.cache.InvalidateStatus(ctx, in.ParentID); err != nil {
		logger.Warnf(ctx, "⚠️  could not invalidate upload status cache: %v", err)
	}

	for _, item := range items {
		if err := s.tasks.EnqueueUploadMedia(ctx, item.ID, 0, 0); err != nil {
			msg := model.TruncateErrorMessage("could not schedule upload: " + err.Error())
			logger.Errorf(ctx, "❌  %s (media #%s)", msg, item.ID)
			if markErr := s.repo.MarkFailed(ctx, item.ID, model.UploadStatusPending, msg); markErr != nil {
				logger.Errorf(ctx, "❌  could not mark media #%s as failed: %v", item.ID, markErr)
				continue
			}
			item.Status = model.UploadStatusFailed
			item.ErrorMessage = &msg
		}
	}

	s.removeSuperseded(context.WithoutCancel(ctx), superseded)
	logger.Infof(ctx, "✅  %d media item(s) accepted for property #%d", len(items), in.ParentID)
	return items, nil
}

// persist returns the stored keys of the rows a replace removed.
func (s *batchSubmitterSrv) persist(ctx context.Context, in port.SubmitBatchInput, items []*model.MediaItem) ([]string, error) {
	if in.Replace {
		superseded, err := s.repo.ReplaceForParent(ctx, in.ParentID, kindsOf(in.Items), items)
		if err != nil {
			return nil, fmt.Errorf("could not replace media of property #%d: %w", in.ParentID, err)
		}
		return superseded, nil
	}
	for _, item := range items {
		if err := s.repo.CreatePending(ctx, item); err != nil {
			return nil, fmt.Errorf("could not create media item: %w", err)
		}
	}
	return nil, nil
}

// removeSuperseded drops the objects of replaced rows. A failure only leaves an
// orphaned object behind, so it is logged and not returned.
func (s *batchSubmitterSrv) removeSuperseded(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.objects.Remove(ctx, key); err != nil {
			logger.Warnf(ctx, "⚠️  could not remove superseded object %q: %v", key, err)
			continue
		}
		logger.Debugf(ctx, "removed superseded object %q", key)
	}
}

func (s *batchSubmitterSrv) dropStashed(ctx context.Context, ids []uuid.UUID) {
	for _, id := range ids {
		if err := s.stash.Delete(ctx, id); err != nil {
			logger.Warnf(ctx, "⚠️  could not drop stashed upload of media #%s: %v", id, err)
		}
	}
}

func validateSpec(spec model.MediaSpec) error {
	if !spec.Kind.IsPipelined() {
		return fmt.Errorf("%w: kind %q is not uploaded through the pipeline", ErrInvalidMediaSpec, spec.Kind)
	}
	switch src := spec.Source.(type) {
	case model.BufferSource:
		return validateBuffer(src)
	case *model.BufferSource:
		if src == nil {
			return fmt.Errorf("%w: missing source", ErrInvalidMediaSpec)
		}
		return validateBuffer(*src)
	case model.RemoteSource:
		return validateRemote(src)
	case *model.RemoteSource:
		if src == nil {
			return fmt.Errorf("%w: missing source", ErrInvalidMediaSpec)
		}
		return validateRemote(*src)
	default:
		return fmt.Errorf("%w: source is neither a file nor a url", ErrInvalidMediaSpec)
	}
}

func validateBuffer(b model.BufferSource) error {
	if len(b.Data) == 0 {
		return fmt.Errorf("%w: file %q is empty", ErrInvalidMediaSpec, b.Filename)
	}
	return nil
}

func validateRemote(r model.RemoteSource) error {
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) url", ErrInvalidMediaSpec, r.URL)
	}
	return nil
}

func bufferOf(src model.MediaSource) (model.BufferSource, bool) {
	switch b := src.(type) {
	case model.BufferSource:
		return b, true
	case *model.BufferSource:
		return *b, true
	}
	return model.BufferSource{}, false
}

func remoteOf(src model.MediaSource) (model.RemoteSource, bool) {
	switch r := src.(type) {
	case model.RemoteSource:
		return r, true
	case *model.RemoteSource:
		return *r, true
	}
	return model.RemoteSource{}, false
}

func newPendingItem(parentID int64, spec model.MediaSpec, now time.Time) *model.MediaItem {
	item := &model.MediaItem{
		ID:            uuid.NewUUID(),
		ParentID:      parentID,
		Kind:          spec.Kind,
		Status:        model.UploadStatusPending,
		OrderPosition: spec.OrderPosition,
		Description:   spec.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if buf, ok := bufferOf(spec.Source); ok {
		size := int64(len(buf.Data))
		item.OriginalFilename = buf.Filename
		item.SizeBytes = &size
		if buf.MimeType != "" {
			mt := buf.MimeType
			item.MimeType = &mt
		}
	}
	if rem, ok := remoteOf(spec.Source); ok {
		u := rem.URL
		item.SourceURL = &u
		item.OriginalFilename = remoteFilename(u)
	}
	return item
}

func remoteFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

func kindsOf(specs []model.MediaSpec) []model.MediaKind {
	var kinds []model.MediaKind
	seen := make(map[model.MediaKind]bool)
	for _, s := range specs {
		if !seen[s.Kind] {
			seen[s.Kind] = true
			kinds = append(kinds, s.Kind)
		}
	}
	return kinds
}

