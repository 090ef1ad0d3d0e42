package api

import (
	"net/http"
	"strconv"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

// RetryUploadsHandler re-queues the failed uploads of a property.
// ?force=true also re-queues items that used up their automatic retries.
func RetryUploadsHandler(svc port.RetryTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := api_context.PropertyIDFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusBadRequest, "ID is required", nil)
			return
		}

		force := false
		if raw := r.URL.Query().Get("force"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "force must be a boolean", nil)
				return
			}
			force = v
		}

		summary, err := svc.RetryFailed(r.Context(), port.RetryFailedInput{ParentID: parentID, Force: force})
		if err != nil {
			writeServiceError(w, "Could not retry uploads", err)
			return
		}

		RespondJSON(w, http.StatusAccepted, summary)
		logger.Infof(r.Context(), "✅  Retry requested for property #%d: %d queued, %d skipped", parentID, summary.Queued, summary.Skipped)
	}
}
