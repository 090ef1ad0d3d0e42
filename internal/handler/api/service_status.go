package api

import (
	"net/http"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

type ServiceStatusResponse struct {
	Status         string           `json:"status"`
	Store          port.StoreHealth `json:"store"`
	CircuitBreaker breaker.Snapshot `json:"circuit_breaker"`
}

// ServiceStatusHandler probes the object store and reports the breaker state.
func ServiceStatusHandler(store port.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := store.HealthCheck(r.Context())
		resp := ServiceStatusResponse{
			Status:         "ok",
			Store:          health,
			CircuitBreaker: store.BreakerSnapshot(),
		}

		status := http.StatusOK
		if !health.Healthy {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Cache-Control", "no-store, max-age=0, must-revalidate")
		RespondJSON(w, status, resp)
	}
}
