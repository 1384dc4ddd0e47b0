package coordinator

import (
	"sync"
	"time"
)

// BreakerState is the health state of one (investigation, agent) pairing
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// CircuitBreaker guards one (investigation, agent_domain) pairing. Many
// entities may share the same pairing concurrently; every state
// transition happens under the breaker's own lock.
type CircuitBreaker struct {
	mu sync.Mutex

	state               BreakerState
	consecutiveFailures int
	totalCalls          int64
	totalSuccesses      int64
	lastError           string
	openedAt            time.Time

	failureThreshold int
	cooldown         time.Duration
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// Allow reports whether a call may proceed. An open breaker admits a
// single half-open probe once its cooldown has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = StateHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess closes the breaker and resets the failure streak
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.totalSuccesses++
	b.consecutiveFailures = 0
	b.state = StateClosed
	b.lastError = ""
}

// RecordFailure increments the failure streak and opens the breaker at
// the threshold. A failed half-open probe re-opens immediately. The
// return value reports whether this failure tripped the breaker open.
func (b *CircuitBreaker) RecordFailure(errMsg string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.consecutiveFailures++
	b.lastError = errMsg

	if b.state != StateOpen && (b.state == StateHalfOpen || b.consecutiveFailures >= b.failureThreshold) {
		b.state = StateOpen
		b.openedAt = time.Now()
		return true
	}
	return false
}

// State returns the current breaker state
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the breaker's observable state for reporting
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	rate := 1.0
	if b.totalCalls > 0 {
		rate = float64(b.totalSuccesses) / float64(b.totalCalls)
	}
	return BreakerSnapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		SuccessRate:         rate,
		LastError:           b.lastError,
	}
}

// BreakerSnapshot is a point-in-time view of a breaker
type BreakerSnapshot struct {
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	SuccessRate         float64      `json:"success_rate"`
	LastError           string       `json:"last_error,omitempty"`
}
