package app

import (
	"context"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

const breakerPublishEvery = 10 * time.Second

// BreakerPublisher copies the worker's breaker snapshot to the board so the API
// reports the breaker that actually guards the uploads.
type BreakerPublisher struct {
	board   port.BreakerBoard
	every   time.Duration
	changed chan struct{}
}

func NewBreakerPublisher(board port.BreakerBoard) *BreakerPublisher {
	return &BreakerPublisher{board: board, every: breakerPublishEvery, changed: make(chan struct{}, 1)}
}

// Notify is an OnStateChange hook. It never blocks and never touches the breaker.
func (p *BreakerPublisher) Notify(from, to breaker.State) {
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

// Run publishes the snapshot of br right away, after each state change and on
// every tick, until ctx is done. A snapshot outlives four missed ticks.
func (p *BreakerPublisher) Run(ctx context.Context, br *breaker.Breaker) {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()

	p.publish(ctx, br)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.changed:
		case <-ticker.C:
		}
		p.publish(ctx, br)
	}
}

func (p *BreakerPublisher) publish(ctx context.Context, br *breaker.Breaker) {
	if err := p.board.PublishBreaker(ctx, br.Name(), br.Snapshot(), 4*p.every); err != nil && ctx.Err() == nil {
		logger.Warnf(ctx, "⚠️  could not publish state of breaker %q: %v", br.Name(), err)
	}
}
