package mock

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

// MockMultimediaSaver implements port.MultimediaSaver for tests.
type MockMultimediaSaver struct {
	Out    *port.SaveMultimediaOutput
	Err    error
	Called bool
	In     port.SaveMultimediaInput
}

func (m *MockMultimediaSaver) SaveMultimedia(ctx context.Context, in port.SaveMultimediaInput) (*port.SaveMultimediaOutput, error) {
	m.Called = true
	m.In = in
	return m.Out, m.Err
}

// MockStatusGetter implements port.StatusGetter for tests.
type MockStatusGetter struct {
	Out      *model.StatusReport
	Err      error
	Called   bool
	ParentID int64
}

func (m *MockStatusGetter) GetStatus(ctx context.Context, parentID int64) (*model.StatusReport, error) {
	m.Called = true
	m.ParentID = parentID
	return m.Out, m.Err
}

// MockRetryTrigger implements port.RetryTrigger for tests.
type MockRetryTrigger struct {
	Out    *model.RetrySummary
	Err    error
	Called bool
	In     port.RetryFailedInput
}

func (m *MockRetryTrigger) RetryFailed(ctx context.Context, in port.RetryFailedInput) (*model.RetrySummary, error) {
	m.Called = true
	m.In = in
	return m.Out, m.Err
}

// MockItemProcessor implements port.ItemProcessor for tests.
type MockItemProcessor struct {
	Err    error
	Called bool
	In     port.ProcessItemInput
}

func (m *MockItemProcessor) ProcessItem(ctx context.Context, in port.ProcessItemInput) error {
	m.Called = true
	m.In = in
	return m.Err
}
