package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/mock"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/usecase/media"
)

func TestUploadStatusHandler(t *testing.T) {
	report := model.BuildStatusReport(testPropertyID, []*model.MediaItem{
		{ParentID: testPropertyID, Kind: model.MediaKindImage, Status: model.UploadStatusCompleted},
		{ParentID: testPropertyID, Kind: model.MediaKindImage, Status: model.UploadStatusPending},
	})

	tests := []struct {
		name         string
		noID         bool
		svcOut       *model.StatusReport
		svcErr       error
		wantStatus   int
		wantProgress int
	}{
		{name: "happy path", svcOut: report, wantStatus: http.StatusOK, wantProgress: 50},
		{name: "missing id", noID: true, wantStatus: http.StatusBadRequest},
		{name: "unknown property", svcErr: media.ErrParentNotFound, wantStatus: http.StatusNotFound},
		{name: "service error", svcErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mock.MockStatusGetter{Out: tc.svcOut, Err: tc.svcErr}
			req := newPropertyRequest(http.MethodGet, "/properties/42/upload-status", nil)
			if tc.noID {
				req = withoutPropertyID(req)
			}
			rec := httptest.NewRecorder()

			UploadStatusHandler(svc)(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tc.wantStatus)
			}
			if tc.noID && svc.Called {
				t.Error("service must not be called without an id")
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			if svc.ParentID != testPropertyID {
				t.Errorf("ParentID = %d; want %d", svc.ParentID, testPropertyID)
			}
			var got model.StatusReport
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ProgressPercentage != tc.wantProgress || got.Total != 2 || got.IsCompleted {
				t.Errorf("report = %+v", got)
			}
		})
	}
}
