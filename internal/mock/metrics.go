package mock

import (
	"sync"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
)

// Metrics records pipeline metrics calls.
type Metrics struct {
	mu         sync.Mutex
	Outcomes   []string
	InProgress int
	States     []breaker.State
}

func (m *Metrics) RecordUpload(kind, outcome string, duration time.Duration, sizeBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, kind+":"+outcome)
}

func (m *Metrics) IncInProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InProgress++
}

func (m *Metrics) DecInProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InProgress--
}

func (m *Metrics) SetBreakerState(state breaker.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States = append(m.States, state)
}
