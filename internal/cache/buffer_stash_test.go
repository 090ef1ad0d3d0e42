package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

func exerciseStash(t *testing.T, s port.BufferStash, expire func()) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewUUID()
	src := model.BufferSource{Data: []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}, MimeType: "image/png", Filename: "front.png"}

	if got, err := s.Get(ctx, id); err != nil || got != nil {
		t.Fatalf("Get before Put = %v, %v; want nil, nil", got, err)
	}
	if ok, err := s.Exists(ctx, id); err != nil || ok {
		t.Fatalf("Exists before Put = %v, %v; want false", ok, err)
	}

	if err := s.Put(ctx, id, src); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Get after Put = %v, %v", got, err)
	}
	if !bytes.Equal(got.Data, src.Data) || got.MimeType != src.MimeType || got.Filename != src.Filename {
		t.Errorf("Get = %+v; want %+v", got, src)
	}
	if ok, _ := s.Exists(ctx, id); !ok {
		t.Error("Exists after Put = false")
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, id); ok {
		t.Error("Exists after Delete = true")
	}

	if err := s.Put(ctx, id, src); err != nil {
		t.Fatalf("Put: %v", err)
	}
	expire()
	if got, _ := s.Get(ctx, id); got != nil {
		t.Errorf("Get after expiry = %+v; want nil", got)
	}
	if ok, _ := s.Exists(ctx, id); ok {
		t.Error("Exists after expiry = true")
	}
}

func TestRedisStash(t *testing.T) {
	rdb, mr := makeTestClient(t)
	s := NewRedisStash(rdb, time.Hour)

	exerciseStash(t, s, func() { mr.FastForward(2 * time.Hour) })
}

func TestRedisStash_TTL(t *testing.T) {
	rdb, mr := makeTestClient(t)
	s := NewRedisStash(rdb, 24*time.Hour)
	id := uuid.NewUUID()

	if err := s.Put(context.Background(), id, model.BufferSource{Data: []byte("x")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ttl := mr.TTL("media:buffer:" + id.String()); ttl != 24*time.Hour {
		t.Errorf("TTL = %v; want 24h", ttl)
	}
}

func TestMemoryStash(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStash(time.Hour)
	s.now = func() time.Time { return now }

	exerciseStash(t, s, func() { now = now.Add(2 * time.Hour) })
}

func TestMemoryStash_PutEvictsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStash(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Put(ctx, uuid.NewUUID(), model.BufferSource{Data: []byte("old")})
	now = now.Add(2 * time.Minute)
	_ = s.Put(ctx, uuid.NewUUID(), model.BufferSource{Data: []byte("new")})

	if len(s.entries) != 1 {
		t.Errorf("entries = %d; want 1 after eviction", len(s.entries))
	}
}
