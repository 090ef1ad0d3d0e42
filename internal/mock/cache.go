package mock

import (
	"context"
	"sync"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// StatusCache implements port.StatusCache for tests.
type StatusCache struct {
	// stored values
	ReportOut *model.StatusReport

	// errors
	GetErr        error
	InvalidateErr error

	// captured inputs
	SetReport   *model.StatusReport
	SetTTL      time.Duration
	Invalidated []int64

	// call flags
	GetCalled bool
	SetCalled bool
}

func (c *StatusCache) GetStatusReport(ctx context.Context, parentID int64) (*model.StatusReport, error) {
	c.GetCalled = true
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	return c.ReportOut, nil
}

func (c *StatusCache) SetStatusReport(ctx context.Context, report *model.StatusReport, ttl time.Duration) {
	c.SetCalled = true
	c.SetReport = report
	c.SetTTL = ttl
}

func (c *StatusCache) InvalidateStatus(ctx context.Context, parentID int64) error {
	c.Invalidated = append(c.Invalidated, parentID)
	return c.InvalidateErr
}

// BufferStash is an in-memory port.BufferStash with injectable errors.
type BufferStash struct {
	mu      sync.Mutex
	Buffers map[uuid.UUID]model.BufferSource

	PutErr    error
	GetErr    error
	ExistsErr error
	DeleteErr error

	Deleted []uuid.UUID
}

func (s *BufferStash) Put(ctx context.Context, id uuid.UUID, src model.BufferSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	if s.Buffers == nil {
		s.Buffers = make(map[uuid.UUID]model.BufferSource)
	}
	s.Buffers[id] = src
	return nil
}

func (s *BufferStash) Get(ctx context.Context, id uuid.UUID) (*model.BufferSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	src, ok := s.Buffers[id]
	if !ok {
		return nil, nil
	}
	return &src, nil
}

func (s *BufferStash) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	_, ok := s.Buffers[id]
	return ok, nil
}

func (s *BufferStash) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, id)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.Buffers, id)
	return nil
}
