package mock

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// Resolver implements port.MediaResolver for tests.
// Without Out it passes buffer sources through.
type Resolver struct {
	Out   *model.ResolvedMedia
	Err   error
	Panic any

	Called bool
	Src    model.MediaSource
}

func (r *Resolver) Resolve(ctx context.Context, src model.MediaSource, itemID uuid.UUID) (*model.ResolvedMedia, error) {
	r.Called = true
	r.Src = src
	if r.Panic != nil {
		panic(r.Panic)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Out != nil {
		return r.Out, nil
	}
	if b, ok := src.(model.BufferSource); ok {
		return &model.ResolvedMedia{Data: b.Data, MimeType: b.MimeType, Filename: b.Filename}, nil
	}
	return &model.ResolvedMedia{Data: []byte("remote"), MimeType: "image/jpeg", Filename: "remote.jpg"}, nil
}

// Transformer implements port.MediaTransformer for tests; identity by default.
type Transformer struct {
	Out  *model.ResolvedMedia
	Err  error
	Meta model.Metadata

	TransformCalled bool
}

func (t *Transformer) Transform(in *model.ResolvedMedia) (*model.ResolvedMedia, error) {
	t.TransformCalled = true
	if t.Err != nil {
		return nil, t.Err
	}
	if t.Out != nil {
		return t.Out, nil
	}
	return in, nil
}

func (t *Transformer) Inspect(mimeType string, data []byte) model.Metadata {
	meta := t.Meta
	meta.MimeType = mimeType
	meta.SizeBytes = int64(len(data))
	return meta
}

// ObjectStore implements port.ObjectStore for tests.
type ObjectStore struct {
	PutErr   error
	Health   port.StoreHealth
	Snapshot breaker.Snapshot

	PutKeys []string
	PutMime []string

	RemoveErr  error
	RemoveKeys []string
}

var _ port.ObjectStore = (*ObjectStore)(nil)

func (s *ObjectStore) Put(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	s.PutKeys = append(s.PutKeys, key)
	s.PutMime = append(s.PutMime, mimeType)
	if s.PutErr != nil {
		return "", s.PutErr
	}
	return key, nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	s.RemoveKeys = append(s.RemoveKeys, key)
	return s.RemoveErr
}

func (s *ObjectStore) HealthCheck(ctx context.Context) port.StoreHealth {
	return s.Health
}

func (s *ObjectStore) BreakerSnapshot() breaker.Snapshot {
	return s.Snapshot
}
