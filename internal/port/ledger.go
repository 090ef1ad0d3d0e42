package port

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// MediaItemRepository is the upload status ledger.
type MediaItemRepository interface {
	CreatePending(ctx context.Context, item *model.MediaItem) error
	// ReplaceForParent deletes the parent's rows of the given kinds and inserts items, atomically.
	// It returns the stored keys of the deleted rows.
	ReplaceForParent(ctx context.Context, parentID int64, kinds []model.MediaKind, items []*model.MediaItem) ([]string, error)
	// MarkUploading claims a pending or retrying row; it fails with ErrNotClaimable otherwise.
	MarkUploading(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, storedKey string, meta model.Metadata) error
	// MarkFailed and MarkRetrying only apply while the row is still in status from;
	// they fail with ErrInvalidTransition otherwise.
	MarkFailed(ctx context.Context, id uuid.UUID, from model.UploadStatus, errorDetail string) error
	MarkRetrying(ctx context.Context, id uuid.UUID, from model.UploadStatus, errorDetail string) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error)
	ListByParent(ctx context.Context, parentID int64) ([]*model.MediaItem, error)
	ListFailedByParent(ctx context.Context, parentID int64) ([]*model.MediaItem, error)
}

// PropertyRepository answers questions about the externally owned property records.
type PropertyRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// PropertyLinkRepository persists URL-only media (videos, 360 tours).
type PropertyLinkRepository interface {
	ReplaceForParent(ctx context.Context, parentID int64, kind model.MediaKind, links []*model.PropertyLink) error
	ListByParent(ctx context.Context, parentID int64) ([]*model.PropertyLink, error)
}
