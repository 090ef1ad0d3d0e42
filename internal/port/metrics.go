package port

import (
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
)

// Upload outcomes reported to PipelineMetrics.
const (
	OutcomeCompleted = "completed"
	OutcomeRetrying  = "retrying"
	OutcomeFailed    = "failed"
)

// PipelineMetrics records upload pipeline activity.
type PipelineMetrics interface {
	RecordUpload(kind, outcome string, duration time.Duration, sizeBytes int64)
	IncInProgress()
	DecInProgress()
	SetBreakerState(state breaker.State)
}
