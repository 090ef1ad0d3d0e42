package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"github.com/redis/go-redis/v9"
)

// bufferEnvelope is the stored form of an uploaded file; Data is base64 in JSON.
type bufferEnvelope struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// RedisStash keeps uploaded bytes in redis so any worker process can pick them up.
type RedisStash struct {
	client *redis.Client
	ttl    time.Duration
}

// compile-time check: *RedisStash must satisfy port.BufferStash
var _ port.BufferStash = (*RedisStash)(nil)

func NewRedisStash(client *redis.Client, ttl time.Duration) *RedisStash {
	return &RedisStash{client: client, ttl: ttl}
}

func (s *RedisStash) Put(ctx context.Context, id uuid.UUID, src model.BufferSource) error {
	logger.Debugf(ctx, "stashing %d bytes for media #%s...", len(src.Data), id)

	data, err := json.Marshal(bufferEnvelope{Data: src.Data, MimeType: src.MimeType, Filename: src.Filename})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	if err := s.client.Set(ctx, bufferKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get returns nil, nil when the buffer expired or was never stashed.
func (s *RedisStash) Get(ctx context.Context, id uuid.UUID) (*model.BufferSource, error) {
	val, err := s.client.Get(ctx, bufferKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var env bufferEnvelope
	if err := json.Unmarshal(val, &env); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &model.BufferSource{Data: env.Data, MimeType: env.MimeType, Filename: env.Filename}, nil
}

func (s *RedisStash) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, bufferKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStash) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, bufferKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func bufferKey(id uuid.UUID) string {
	return "media:buffer:" + id.String()
}

type memoryEntry struct {
	src       model.BufferSource
	expiresAt time.Time
}

// MemoryStash keeps uploaded bytes in process, for single-process deployments without redis.
type MemoryStash struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
}

// compile-time check: *MemoryStash must satisfy port.BufferStash
var _ port.BufferStash = (*MemoryStash)(nil)

func NewMemoryStash(ttl time.Duration) *MemoryStash {
	return &MemoryStash{ttl: ttl, now: time.Now, entries: make(map[uuid.UUID]memoryEntry)}
}

func (s *MemoryStash) Put(_ context.Context, id uuid.UUID, src model.BufferSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	s.entries[id] = memoryEntry{src: src, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStash) Get(_ context.Context, id uuid.UUID) (*model.BufferSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return nil, nil
	}
	src := e.src
	return &src, nil
}

func (s *MemoryStash) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(id)
	return ok, nil
}

func (s *MemoryStash) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *MemoryStash) lookup(id uuid.UUID) (memoryEntry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if s.ttl > 0 && !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStash) evictExpired() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
