package worker

import (
	"context"
	"fmt"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/task"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"github.com/hibiken/asynq"
)

// UploadMediaHandler handles a media:upload task.
// It converts the task payload to the input expected by the
// item processor and delegates the call.
func UploadMediaHandler(ctx context.Context, p task.UploadMediaPayload, svc port.ItemProcessor) error {
	id, err := uuid.Parse(p.MediaID)
	if err != nil {
		logger.Errorf(ctx, "❌  Invalid media ID %q: %v", p.MediaID, err)
		return fmt.Errorf("invalid media id %q: %w", p.MediaID, asynq.SkipRetry)
	}

	ctx = api_context.WithMediaID(ctx, id)
	in := port.ProcessItemInput{ID: id, Attempt: p.Attempt}
	if err := svc.ProcessItem(ctx, in); err != nil {
		logger.Errorf(ctx, "❌  Failed to process media #%s (attempt %d): %v", id, p.Attempt, err)
		return err
	}

	logger.Debugf(ctx, "✅  Processed media #%s (attempt %d)", id, p.Attempt)
	return nil
}
