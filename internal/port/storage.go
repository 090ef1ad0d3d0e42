package port

import (
	"context"
	"io"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
)

// Storage defines raw object-store operations for one driver (MinIO, S3).
type Storage interface {
	InitBucket(ctx context.Context, bucket string) error
	Ping(ctx context.Context, bucket string) error
	SaveFile(ctx context.Context, bucket, fileKey string, reader io.Reader, fileSize int64, opts map[string]string) error
	RemoveFile(ctx context.Context, bucket, fileKey string) error
}

// StoreHealth is the outcome of a gateway health probe.
type StoreHealth struct {
	Healthy   bool          `json:"healthy"`
	Detail    string        `json:"detail"`
	Driver    string        `json:"driver"`
	Bucket    string        `json:"bucket"`
	Latency   time.Duration `json:"-"`
	LatencyMs int64         `json:"latency_ms"`
}

// ObjectRemover drops stored objects that no ledger row points at anymore.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

// ObjectStore is the breaker-guarded capability used by the pipeline.
type ObjectStore interface {
	ObjectRemover
	Put(ctx context.Context, data []byte, key, mimeType string) (string, error)
	HealthCheck(ctx context.Context) StoreHealth
	BreakerSnapshot() breaker.Snapshot
}
