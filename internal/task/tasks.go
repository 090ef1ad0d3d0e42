package task

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeUploadMedia = "media:upload"
	QueueUploads    = "uploads"
)

type UploadMediaPayload struct {
	MediaID string `json:"media_id"`
	Attempt int    `json:"attempt"`
}

// NewUploadMediaTask creates an Asynq task for uploading a media item by ID.
func NewUploadMediaTask(mediaID string, attempt int) (*asynq.Task, error) {
	p := UploadMediaPayload{MediaID: mediaID, Attempt: attempt}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("could not marshal upload-media payload: %w", err)
	}
	return asynq.NewTask(TypeUploadMedia, data), nil
}

// ParseUploadMediaPayload parses the task payload to UploadMediaPayload.
func ParseUploadMediaPayload(t *asynq.Task) (UploadMediaPayload, error) {
	var p UploadMediaPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return UploadMediaPayload{}, fmt.Errorf("could not unmarshal payload: %w", err)
	}
	return p, nil
}

// UploadTaskID identifies one attempt of one item, so an attempt is never queued twice.
func UploadTaskID(mediaID string, attempt int) string {
	return fmt.Sprintf("upload:%s:%d", mediaID, attempt)
}
