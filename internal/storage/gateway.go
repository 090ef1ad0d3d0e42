package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

const healthCheckTimeout = 5 * time.Second

// Gateway puts objects into one bucket through a circuit breaker.
type Gateway struct {
	strg       port.Storage
	driver     string
	bucket     string
	breaker    *breaker.Breaker
	putTimeout time.Duration
}

// compile-time check: *Gateway must satisfy port.ObjectStore
var _ port.ObjectStore = (*Gateway)(nil)

func NewGateway(strg port.Storage, driver, bucket string, br *breaker.Breaker, putTimeout time.Duration) *Gateway {
	return &Gateway{
		strg:       strg,
		driver:     driver,
		bucket:     bucket,
		breaker:    br,
		putTimeout: putTimeout,
	}
}

// Put stores data at key, overwriting any previous object, and returns the key.
// While the breaker is open it fails with a *breaker.OpenError without touching the store.
func (g *Gateway) Put(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		return "", err
	}

	putCtx := ctx
	if g.putTimeout > 0 {
		var cancel context.CancelFunc
		putCtx, cancel = context.WithTimeout(ctx, g.putTimeout)
		defer cancel()
	}

	err := g.strg.SaveFile(putCtx, g.bucket, key, bytes.NewReader(data), int64(len(data)), map[string]string{
		"Content-Type": mimeType,
	})
	if err != nil && ctx.Err() != nil {
		// the caller went away, this says nothing about the store
		g.breaker.Release()
		return "", fmt.Errorf("%w: %w", ErrPutFailed, ctx.Err())
	}
	g.breaker.Mark(err)
	if err != nil {
		logger.Warnf(ctx, "⚠️  put of %q into bucket %q failed: %v", key, g.bucket, err)
		return "", fmt.Errorf("%w: %w", ErrPutFailed, err)
	}
	return key, nil
}

// Remove deletes the object at key. Like Put it is refused while the breaker is open.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	if err := g.breaker.Allow(); err != nil {
		return err
	}
	err := g.strg.RemoveFile(ctx, g.bucket, key)
	if err != nil && ctx.Err() != nil {
		g.breaker.Release()
		return ctx.Err()
	}
	g.breaker.Mark(err)
	if err != nil {
		return fmt.Errorf("could not remove %q from bucket %q: %w", key, g.bucket, err)
	}
	return nil
}

// HealthCheck reports the store's reachability. It never feeds the breaker.
func (g *Gateway) HealthCheck(ctx context.Context) port.StoreHealth {
	h := port.StoreHealth{Driver: g.driver, Bucket: g.bucket}

	if g.breaker.State() == breaker.StateOpen {
		h.Detail = breaker.ErrCircuitOpen.Error()
		return h
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := g.strg.Ping(pingCtx, g.bucket)
	h.Latency = time.Since(start)
	h.LatencyMs = h.Latency.Milliseconds()

	switch {
	case err == nil:
		h.Healthy = true
		h.Detail = "ok"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(pingCtx.Err(), context.DeadlineExceeded):
		h.Detail = "store did not answer within " + healthCheckTimeout.String()
	default:
		h.Detail = err.Error()
	}
	return h
}

func (g *Gateway) BreakerSnapshot() breaker.Snapshot {
	return g.breaker.Snapshot()
}
