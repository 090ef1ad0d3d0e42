package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

// compile-time check: *Cache must satisfy port.StatusCache
var _ port.StatusCache = (*Cache)(nil)

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// GetStatusReport returns nil, nil on a cache miss.
func (c *Cache) GetStatusReport(ctx context.Context, parentID int64) (*model.StatusReport, error) {
	logger.Debugf(ctx, "getting upload status of property #%d from cache...", parentID)

	val, err := c.client.Get(ctx, statusKey(parentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var report model.StatusReport
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &report, nil
}

func (c *Cache) SetStatusReport(ctx context.Context, report *model.StatusReport, ttl time.Duration) {
	if report == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.Warnf(ctx, "⚠️  could not marshal upload status of property #%d: %v", report.ParentID, err)
		return
	}
	if err := c.client.Set(ctx, statusKey(report.ParentID), data, ttl).Err(); err != nil {
		logger.Warnf(ctx, "⚠️  could not cache upload status of property #%d: %v", report.ParentID, err)
	}
}

func (c *Cache) InvalidateStatus(ctx context.Context, parentID int64) error {
	if err := c.client.Del(ctx, statusKey(parentID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func statusKey(parentID int64) string {
	return "upload-status:" + strconv.FormatInt(parentID, 10)
}
