package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/cache"
	"github.com/fhuszti/property-media-ms-go/internal/config"
	"github.com/fhuszti/property-media-ms-go/internal/mock"
)

func waitForState(t *testing.T, board *cache.BreakerBoard, want breaker.State) *breaker.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := board.GetBreaker(context.Background(), breakerName)
		if err != nil {
			t.Fatalf("GetBreaker: %v", err)
		}
		if snap != nil && snap.State == want {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("breaker %q never published as %s", breakerName, want)
	return nil
}

func TestBreakerPublisher_SharesWorkerStateWithAPI(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := &config.Settings{
		RedisAddr:               mr.Addr(),
		BreakerFailureThreshold: 1,
		BreakerCooldown:         time.Hour,
		BreakerHalfOpenMaxCalls: 1,
	}

	// worker side
	_, _, workerBoard := RedisStores(cfg)
	publisher := NewBreakerPublisher(workerBoard)
	publisher.every = time.Hour
	br := NewBreaker(cfg, &mock.Metrics{}, publisher.Notify)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		publisher.Run(ctx, br)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitForState(t, workerBoard, breaker.StateClosed)
	if ttl := mr.TTL("breaker:" + breakerName); ttl <= 0 {
		t.Errorf("published snapshot has no ttl")
	}

	if err := br.Allow(); err != nil {
		t.Fatal(err)
	}
	br.Mark(errors.New("boom"))
	snap := waitForState(t, workerBoard, breaker.StateOpen)
	if snap.ConsecutiveFailures != 1 || snap.NextAttemptTime == nil {
		t.Errorf("published snapshot = %+v", snap)
	}

	// api side: its own breaker never saw a failure
	_, _, apiBoard := RedisStores(cfg)
	apiBreaker := NewBreaker(cfg, &mock.Metrics{})
	store := NewSharedStore(&mock.ObjectStore{Snapshot: apiBreaker.Snapshot()}, apiBoard)
	if got := store.BreakerSnapshot(); got.State != breaker.StateOpen {
		t.Errorf("api reports %s; want the worker's open breaker", got.State)
	}
}

func TestBreakerPublisher_NotifyNeverBlocks(t *testing.T) {
	p := NewBreakerPublisher(nil)
	for i := 0; i < 10; i++ {
		p.Notify(breaker.StateClosed, breaker.StateOpen)
	}
	if len(p.changed) != 1 {
		t.Errorf("pending notifications = %d; want 1", len(p.changed))
	}
}
