package media

import (
	"errors"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
)

// RetryDelayPolicy decides how long an automatic retry waits after a circuit-open failure.
type RetryDelayPolicy interface {
	Delay(cause error) time.Duration
}

// FixedRetryDelay always waits the same time.
type FixedRetryDelay time.Duration

func (d FixedRetryDelay) Delay(error) time.Duration { return time.Duration(d) }

// BreakerRetryDelay waits until the breaker lets a trial call through, but at least Floor.
type BreakerRetryDelay struct {
	Floor time.Duration
	Now   func() time.Time
}

func (d BreakerRetryDelay) Delay(cause error) time.Duration {
	var oe *breaker.OpenError
	if !errors.As(cause, &oe) {
		return d.Floor
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	if wait := oe.RetryAt.Sub(now()); wait > d.Floor {
		return wait
	}
	return d.Floor
}
