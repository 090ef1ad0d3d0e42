package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/mock"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

func TestServiceStatusHandler(t *testing.T) {
	tests := []struct {
		name       string
		health     port.StoreHealth
		snapshot   breaker.Snapshot
		wantStatus int
		wantBody   string
		wantState  string
	}{
		{
			name:       "healthy",
			health:     port.StoreHealth{Healthy: true, Detail: "ok", Driver: "minio", Bucket: "property-media"},
			snapshot:   breaker.Snapshot{State: breaker.StateClosed},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantState:  "closed",
		},
		{
			name:       "circuit open",
			health:     port.StoreHealth{Healthy: false, Detail: "circuit breaker is open"},
			snapshot:   breaker.Snapshot{State: breaker.StateOpen, ConsecutiveFailures: 5},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
			wantState:  "open",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &mock.ObjectStore{Health: tc.health, Snapshot: tc.snapshot}
			rec := httptest.NewRecorder()

			ServiceStatusHandler(store)(rec, httptest.NewRequest(http.MethodGet, "/properties/service-status", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tc.wantStatus)
			}
			var got struct {
				Status         string `json:"status"`
				Store          struct{ Healthy bool } `json:"store"`
				CircuitBreaker struct {
					State string `json:"state"`
				} `json:"circuit_breaker"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tc.wantBody {
				t.Errorf("status field = %q; want %q", got.Status, tc.wantBody)
			}
			if got.Store.Healthy != tc.health.Healthy {
				t.Errorf("store.healthy = %v; want %v", got.Store.Healthy, tc.health.Healthy)
			}
			if got.CircuitBreaker.State != tc.wantState {
				t.Errorf("circuit_breaker.state = %q; want %q", got.CircuitBreaker.State, tc.wantState)
			}
		})
	}
}
