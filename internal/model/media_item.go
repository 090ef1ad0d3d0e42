package model

import (
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

type MediaKind string

const (
	MediaKindImage      MediaKind = "image"
	MediaKindAttachment MediaKind = "attachment"
	MediaKindVideo      MediaKind = "video"
	MediaKindTour360    MediaKind = "tour360"
)

// PipelinedKinds are the kinds transferred to the object store in the background.
var PipelinedKinds = []MediaKind{MediaKindImage, MediaKindAttachment}

func (k MediaKind) IsValid() bool {
	switch k {
	case MediaKindImage, MediaKindAttachment, MediaKindVideo, MediaKindTour360:
		return true
	}
	return false
}

// IsPipelined reports whether items of this kind go through the upload pipeline.
// Videos and 360 tours are plain links persisted synchronously.
func (k MediaKind) IsPipelined() bool {
	return k == MediaKindImage || k == MediaKindAttachment
}

// Folder is the logical folder used for the kind inside a parent's key space.
func (k MediaKind) Folder() string {
	switch k {
	case MediaKindImage:
		return "images"
	case MediaKindAttachment:
		return "attachments"
	case MediaKindVideo:
		return "videos"
	case MediaKindTour360:
		return "tours360"
	default:
		return "other"
	}
}

type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
	UploadStatusRetrying  UploadStatus = "retrying"
)

// MaxErrorMessageLength bounds the error detail kept on a ledger row.
const MaxErrorMessageLength = 1000

// MediaItem is one ledger row: an image or attachment owned by a property.
type MediaItem struct {
	ID               uuid.UUID    `json:"id"`
	ParentID         int64        `json:"parent_id"`
	Kind             MediaKind    `json:"kind"`
	SourceURL        *string      `json:"source_url,omitempty"`
	OriginalFilename string       `json:"original_filename"`
	MimeType         *string      `json:"mime_type,omitempty"`
	SizeBytes        *int64       `json:"size_bytes,omitempty"`
	StoredKey        *string      `json:"stored_key"`
	Status           UploadStatus `json:"status"`
	RetryCount       int          `json:"retry_count"`
	ErrorMessage     *string      `json:"error_message"`
	CompletedAt      *time.Time   `json:"completed_at"`
	OrderPosition    int          `json:"order_position"`
	Description      *string      `json:"description,omitempty"`
	Metadata         Metadata     `json:"metadata"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// HasSourceURL reports whether the item can be fetched again from its origin.
func (m *MediaItem) HasSourceURL() bool {
	return m.SourceURL != nil && *m.SourceURL != ""
}

// TruncateErrorMessage caps msg to MaxErrorMessageLength runes.
func TruncateErrorMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxErrorMessageLength {
		return msg
	}
	return string(r[:MaxErrorMessageLength])
}

// PropertyLink is a video or 360 tour attached to a property by URL only.
type PropertyLink struct {
	ID            uuid.UUID `json:"id"`
	ParentID      int64     `json:"parent_id"`
	Kind          MediaKind `json:"kind"`
	URL           string    `json:"url"`
	OrderPosition int       `json:"order_position"`
	CreatedAt     time.Time `json:"created_at"`
}
