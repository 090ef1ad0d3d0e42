package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown has elapsed.
	StateOpen
	// StateHalfOpen lets a bounded number of trial calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateClosed, StateOpen, StateHalfOpen} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown breaker state %q", b)
}

// ErrCircuitOpen is returned by Allow while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError carries the time at which the breaker will let a trial call through.
type OpenError struct {
	Name    string
	RetryAt time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: %s, next attempt at %s", e.Name, ErrCircuitOpen, e.RetryAt.Format(time.RFC3339))
}

func (e *OpenError) Unwrap() error { return ErrCircuitOpen }

// Config configures circuit breaker behaviour.
type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	Cooldown         time.Duration // time spent open before probing
	HalfOpenMaxCalls int           // concurrent trial calls allowed while half-open

	// OnStateChange runs with the breaker locked and must not call back into it.
	OnStateChange func(from, to State)
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Snapshot is a consistent copy of the breaker's internal state.
type Snapshot struct {
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureTime     *time.Time `json:"last_failure_time"`
	NextAttemptTime     *time.Time `json:"next_attempt_time"`
}

// Breaker is a three-state circuit breaker safe for concurrent use.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu              sync.Mutex
	state           State
	failures        int
	halfOpenCalls   int
	lastFailureTime time.Time
	nextAttemptTime time.Time
}

// New creates a closed breaker. Zero config values fall back to DefaultConfig.
func New(name string, config Config) *Breaker {
	def := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = def.Cooldown
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return &Breaker{name: name, config: config, now: time.Now, state: StateClosed}
}

// WithClock replaces the time source. Used by tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

func (b *Breaker) Name() string { return b.name }

// Allow checks whether a call may proceed. Every nil return must be
// followed by exactly one Mark with the call's outcome.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Before(b.nextAttemptTime) {
			return &OpenError{Name: b.name, RetryAt: b.nextAttemptTime}
		}
		b.setState(StateHalfOpen)
		b.halfOpenCalls = 1
		return nil

	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.HalfOpenMaxCalls {
			return &OpenError{Name: b.name, RetryAt: b.now().Add(time.Second)}
		}
		b.halfOpenCalls++
		return nil

	default:
		return fmt.Errorf("unknown circuit breaker state: %v", b.state)
	}
}

// Mark records the outcome of a call admitted by Allow.
func (b *Breaker) Mark(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

// Release gives back a call admitted by Allow without recording an outcome,
// e.g. when the caller gave up before the dependency answered.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.halfOpenCalls > 0 {
		b.halfOpenCalls--
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		if b.failures > 0 {
			b.failures--
		}
	case StateHalfOpen:
		b.failures = 0
		b.halfOpenCalls = 0
		b.setState(StateClosed)
	}
}

func (b *Breaker) onFailure() {
	now := b.now()
	b.lastFailureTime = now

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.open(now)
		}
	case StateHalfOpen:
		b.failures++
		b.open(now)
	case StateOpen:
		// late result of a call admitted before the circuit opened
		b.failures++
	}
}

func (b *Breaker) open(now time.Time) {
	b.nextAttemptTime = now.Add(b.config.Cooldown)
	b.halfOpenCalls = 0
	b.setState(StateOpen)
}

func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}

// State returns the current state without triggering a transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{State: b.state, ConsecutiveFailures: b.failures}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		s.LastFailureTime = &t
	}
	if b.state == StateOpen {
		t := b.nextAttemptTime
		s.NextAttemptTime = &t
	}
	return s
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.halfOpenCalls = 0
	b.lastFailureTime = time.Time{}
	b.nextAttemptTime = time.Time{}
	b.setState(StateClosed)
}
