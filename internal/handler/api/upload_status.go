package api

import (
	"net/http"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

// UploadStatusHandler returns the upload rollup of a property.
func UploadStatusHandler(svc port.StatusGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := api_context.PropertyIDFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusBadRequest, "ID is required", nil)
			return
		}

		report, err := svc.GetStatus(r.Context(), parentID)
		if err != nil {
			writeServiceError(w, "Could not get upload status", err)
			return
		}

		w.Header().Set("Cache-Control", "no-store, max-age=0, must-revalidate")
		RespondJSON(w, http.StatusOK, report)
		logger.Debugf(r.Context(), "✅  Upload status served for property #%d (%d%%)", parentID, report.ProgressPercentage)
	}
}
