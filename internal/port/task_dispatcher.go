package port

import (
	"context"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// TaskDispatcher schedules background processing of media items.
type TaskDispatcher interface {
	// EnqueueUploadMedia schedules one processing attempt; delay 0 means now.
	EnqueueUploadMedia(ctx context.Context, id uuid.UUID, attempt int, delay time.Duration) error
}
