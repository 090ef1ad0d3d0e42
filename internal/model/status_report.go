package model

import (
	"math"

	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

type StatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Retrying  int `json:"retrying"`
}

func (c *StatusCounts) add(s UploadStatus) {
	c.Total++
	switch s {
	case UploadStatusPending:
		c.Pending++
	case UploadStatusUploading:
		c.Uploading++
	case UploadStatusCompleted:
		c.Completed++
	case UploadStatusFailed:
		c.Failed++
	case UploadStatusRetrying:
		c.Retrying++
	}
}

// StatusReport is the upload rollup for one property.
type StatusReport struct {
	ParentID int64 `json:"parent_id"`
	StatusCounts
	ProgressPercentage int                        `json:"progress_percentage"`
	IsCompleted        bool                       `json:"is_completed"`
	HasErrors          bool                       `json:"has_errors"`
	ByKind             map[MediaKind]StatusCounts `json:"by_kind"`
	Items              []*MediaItem               `json:"items"`
	Links              []*PropertyLink            `json:"links"`
}

// Settled reports whether no row can still change without a new request.
func (r *StatusReport) Settled() bool {
	return r.Pending == 0 && r.Uploading == 0 && r.Retrying == 0
}

// BuildStatusReport aggregates ledger rows into a report.
// Progress is completed/total rounded to the nearest percent, 0 for an empty set.
func BuildStatusReport(parentID int64, items []*MediaItem) *StatusReport {
	r := &StatusReport{
		ParentID: parentID,
		ByKind:   make(map[MediaKind]StatusCounts),
		Items:    items,
		Links:    []*PropertyLink{},
	}
	if r.Items == nil {
		r.Items = []*MediaItem{}
	}

	for _, it := range items {
		r.add(it.Status)
		kc := r.ByKind[it.Kind]
		kc.add(it.Status)
		r.ByKind[it.Kind] = kc
	}

	if r.Total > 0 {
		r.ProgressPercentage = int(math.Round(float64(r.Completed) * 100 / float64(r.Total)))
	}
	r.IsCompleted = r.Pending == 0 && r.Uploading == 0
	r.HasErrors = r.Failed > 0 || r.Retrying > 0
	return r
}

// RetrySummary is the outcome of a manual retry request.
type RetrySummary struct {
	ParentID  int64       `json:"parent_id"`
	Queued    int         `json:"queued"`
	Skipped   int         `json:"skipped"`
	Exhausted int         `json:"exhausted"`
	QueuedIDs []uuid.UUID `json:"queued_ids"`
	Skips     []RetrySkip `json:"skips"`
}

type RetrySkip struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}
