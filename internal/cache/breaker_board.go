package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/redis/go-redis/v9"
)

// BreakerBoard shares circuit breaker snapshots between processes.
type BreakerBoard struct {
	client *redis.Client
}

// compile-time check: *BreakerBoard must satisfy port.BreakerBoard
var _ port.BreakerBoard = (*BreakerBoard)(nil)

func NewBreakerBoard(client *redis.Client) *BreakerBoard {
	return &BreakerBoard{client: client}
}

func (b *BreakerBoard) PublishBreaker(ctx context.Context, name string, snap breaker.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	if err := b.client.Set(ctx, breakerKey(name), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// GetBreaker returns nil, nil when no snapshot was published or it expired.
func (b *BreakerBoard) GetBreaker(ctx context.Context, name string) (*breaker.Snapshot, error) {
	val, err := b.client.Get(ctx, breakerKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap breaker.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &snap, nil
}

func breakerKey(name string) string {
	return "breaker:" + name
}
