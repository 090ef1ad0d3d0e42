package media

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
)

func TestFixedRetryDelay(t *testing.T) {
	d := FixedRetryDelay(time.Minute)
	if got := d.Delay(&breaker.OpenError{RetryAt: time.Now().Add(time.Hour)}); got != time.Minute {
		t.Errorf("Delay = %v; want 1m", got)
	}
}

func TestBreakerRetryDelay(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d := BreakerRetryDelay{Floor: time.Second, Now: func() time.Time { return now }}

	tests := []struct {
		name  string
		cause error
		want  time.Duration
	}{
		{"waits for the breaker", fmt.Errorf("put: %w", &breaker.OpenError{RetryAt: now.Add(25 * time.Second)}), 25 * time.Second},
		{"floor when due", &breaker.OpenError{RetryAt: now.Add(-time.Second)}, time.Second},
		{"floor without breaker info", errors.New("boom"), time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Delay(tc.cause); got != tc.want {
				t.Errorf("Delay = %v; want %v", got, tc.want)
			}
		})
	}
}
