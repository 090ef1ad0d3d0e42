package port

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// BatchSubmitter persists pending ledger rows and schedules their background upload.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, in SubmitBatchInput) ([]*model.MediaItem, error)
}
type SubmitBatchInput struct {
	ParentID int64
	Items    []model.MediaSpec
	// Replace supersedes the parent's existing rows of every kind present in Items.
	Replace bool
}

// ItemProcessor runs one upload attempt for a media item.
type ItemProcessor interface {
	ProcessItem(ctx context.Context, in ProcessItemInput) error
}
type ProcessItemInput struct {
	ID      uuid.UUID
	Attempt int
}

// StatusGetter returns the upload rollup for a property.
type StatusGetter interface {
	GetStatus(ctx context.Context, parentID int64) (*model.StatusReport, error)
}

// RetryTrigger re-submits failed uploads of a property.
type RetryTrigger interface {
	RetryFailed(ctx context.Context, in RetryFailedInput) (*model.RetrySummary, error)
}
type RetryFailedInput struct {
	ParentID int64
	// Force includes rows that already used up their automatic retries.
	Force bool
}

// MultimediaSaver stores links synchronously and submits uploads for a property.
type MultimediaSaver interface {
	SaveMultimedia(ctx context.Context, in SaveMultimediaInput) (*SaveMultimediaOutput, error)
}
type LinkSpec struct {
	URL           string
	OrderPosition int
}
type SaveMultimediaInput struct {
	ParentID int64
	Uploads  []model.MediaSpec
	Videos   []LinkSpec
	Tours360 []LinkSpec
}
type SaveMultimediaOutput struct {
	Items []*model.MediaItem    `json:"items"`
	Links []*model.PropertyLink `json:"links"`
}
