package mock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

var (
	_ port.MediaItemRepository    = (*MediaItemRepo)(nil)
	_ port.PropertyRepository     = (*PropertyRepo)(nil)
	_ port.PropertyLinkRepository = (*PropertyLinkRepo)(nil)
)

// ErrNotFound is returned by MediaItemRepo for unknown ids unless NotFoundErr is set.
var ErrNotFound = errors.New("mock: not found")

// MediaItemRepo is an in-memory ledger with injectable errors.
// Status changes follow the same guards as the SQL repository.
type MediaItemRepo struct {
	mu    sync.Mutex
	Items map[uuid.UUID]*model.MediaItem

	// errors returned for the guarded cases
	NotFoundErr     error
	NotClaimableErr error
	TransitionErr   error

	// forced errors
	CreateErr         error
	ReplaceErr        error
	MarkUploadingErr  error
	MarkCompletedErr  error
	MarkFailedErr     error
	MarkRetryingErr   error
	IncrementRetryErr error
	GetErr            error
	ListErr           error

	// captured calls
	Transitions     []string
	ReplacedParent  int64
	ReplacedKinds   []model.MediaKind
	ListCalled      bool
	ListFailedCalls int
}

func NewMediaItemRepo(items ...*model.MediaItem) *MediaItemRepo {
	r := &MediaItemRepo{Items: make(map[uuid.UUID]*model.MediaItem)}
	for _, it := range items {
		r.Items[it.ID] = it
	}
	return r
}

func (r *MediaItemRepo) notFound() error {
	if r.NotFoundErr != nil {
		return r.NotFoundErr
	}
	return ErrNotFound
}

func (r *MediaItemRepo) record(t string, id uuid.UUID) {
	r.Transitions = append(r.Transitions, t+":"+id.String())
}

func (r *MediaItemRepo) CreatePending(ctx context.Context, item *model.MediaItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if r.Items == nil {
		r.Items = make(map[uuid.UUID]*model.MediaItem)
	}
	cp := *item
	r.Items[item.ID] = &cp
	r.record("pending", item.ID)
	return nil
}

func (r *MediaItemRepo) ReplaceForParent(ctx context.Context, parentID int64, kinds []model.MediaKind, items []*model.MediaItem) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReplacedParent = parentID
	r.ReplacedKinds = kinds
	if r.ReplaceErr != nil {
		return nil, r.ReplaceErr
	}
	if r.Items == nil {
		r.Items = make(map[uuid.UUID]*model.MediaItem)
	}
	var superseded []string
	for id, it := range r.Items {
		if it.ParentID != parentID {
			continue
		}
		for _, k := range kinds {
			if it.Kind == k {
				if it.StoredKey != nil {
					superseded = append(superseded, *it.StoredKey)
				}
				delete(r.Items, id)
				break
			}
		}
	}
	for _, item := range items {
		cp := *item
		r.Items[item.ID] = &cp
		r.record("pending", item.ID)
	}
	sort.Strings(superseded)
	return superseded, nil
}

func (r *MediaItemRepo) MarkUploading(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MarkUploadingErr != nil {
		return r.MarkUploadingErr
	}
	it, ok := r.Items[id]
	if !ok || (it.Status != model.UploadStatusPending && it.Status != model.UploadStatusRetrying) {
		if r.NotClaimableErr != nil {
			return r.NotClaimableErr
		}
		return errors.New("mock: not claimable")
	}
	it.Status = model.UploadStatusUploading
	it.ErrorMessage = nil
	r.record("uploading", id)
	return nil
}

func (r *MediaItemRepo) MarkCompleted(ctx context.Context, id uuid.UUID, storedKey string, meta model.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MarkCompletedErr != nil {
		return r.MarkCompletedErr
	}
	it, ok := r.Items[id]
	if !ok || it.Status != model.UploadStatusUploading {
		if r.TransitionErr != nil {
			return r.TransitionErr
		}
		return errors.New("mock: invalid transition")
	}
	now := time.Now()
	it.Status = model.UploadStatusCompleted
	it.StoredKey = &storedKey
	it.Metadata = meta
	it.ErrorMessage = nil
	it.CompletedAt = &now
	r.record("completed", id)
	return nil
}

func (r *MediaItemRepo) markError(id uuid.UUID, from, status model.UploadStatus, detail string) error {
	it, ok := r.Items[id]
	if !ok || it.Status != from || it.Status == model.UploadStatusCompleted {
		if r.TransitionErr != nil {
			return r.TransitionErr
		}
		return errors.New("mock: invalid transition")
	}
	msg := model.TruncateErrorMessage(detail)
	it.Status = status
	it.ErrorMessage = &msg
	it.StoredKey = nil
	it.CompletedAt = nil
	r.record(string(status), id)
	return nil
}

func (r *MediaItemRepo) MarkFailed(ctx context.Context, id uuid.UUID, from model.UploadStatus, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MarkFailedErr != nil {
		return r.MarkFailedErr
	}
	return r.markError(id, from, model.UploadStatusFailed, errorDetail)
}

func (r *MediaItemRepo) MarkRetrying(ctx context.Context, id uuid.UUID, from model.UploadStatus, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MarkRetryingErr != nil {
		return r.MarkRetryingErr
	}
	return r.markError(id, from, model.UploadStatusRetrying, errorDetail)
}

func (r *MediaItemRepo) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.IncrementRetryErr != nil {
		return r.IncrementRetryErr
	}
	it, ok := r.Items[id]
	if !ok {
		return r.notFound()
	}
	it.RetryCount++
	return nil
}

func (r *MediaItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	it, ok := r.Items[id]
	if !ok {
		return nil, r.notFound()
	}
	cp := *it
	return &cp, nil
}

func (r *MediaItemRepo) list(parentID int64, keep func(*model.MediaItem) bool) []*model.MediaItem {
	var out []*model.MediaItem
	for _, it := range r.Items {
		if it.ParentID == parentID && keep(it) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].OrderPosition < out[j].OrderPosition
	})
	return out
}

func (r *MediaItemRepo) ListByParent(ctx context.Context, parentID int64) ([]*model.MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListCalled = true
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	return r.list(parentID, func(*model.MediaItem) bool { return true }), nil
}

func (r *MediaItemRepo) ListFailedByParent(ctx context.Context, parentID int64) ([]*model.MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListFailedCalls++
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	return r.list(parentID, func(it *model.MediaItem) bool {
		return it.Status == model.UploadStatusFailed
	}), nil
}

// Get returns the stored row without copying; for assertions only.
func (r *MediaItemRepo) Get(id uuid.UUID) *model.MediaItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Items[id]
}

// PropertyRepo answers Exists from a fixed set of ids.
type PropertyRepo struct {
	IDs       map[int64]bool
	ExistsErr error
}

func (p *PropertyRepo) Exists(ctx context.Context, id int64) (bool, error) {
	if p.ExistsErr != nil {
		return false, p.ExistsErr
	}
	return p.IDs[id], nil
}

// PropertyLinkRepo records replaced links per kind.
type PropertyLinkRepo struct {
	Links      map[model.MediaKind][]*model.PropertyLink
	ReplaceErr error
	ListErr    error

	ReplaceCalls int
}

func (p *PropertyLinkRepo) ReplaceForParent(ctx context.Context, parentID int64, kind model.MediaKind, links []*model.PropertyLink) error {
	p.ReplaceCalls++
	if p.ReplaceErr != nil {
		return p.ReplaceErr
	}
	if p.Links == nil {
		p.Links = make(map[model.MediaKind][]*model.PropertyLink)
	}
	p.Links[kind] = links
	return nil
}

func (p *PropertyLinkRepo) ListByParent(ctx context.Context, parentID int64) ([]*model.PropertyLink, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	var out []*model.PropertyLink
	for _, kind := range []model.MediaKind{model.MediaKindVideo, model.MediaKindTour360} {
		for _, l := range p.Links[kind] {
			if l.ParentID == parentID {
				out = append(out, l)
			}
		}
	}
	return out, nil
}
