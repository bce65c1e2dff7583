package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards an outbound dependency. A streak of failures
// trips it open until a deadline, after which a bounded number of
// half-open probes decide whether it closes again.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	state     CircuitState
	failures  int
	openUntil time.Time
	probes    int
	probeOKs  int
	now       func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	cfg := NormalizeCircuitBreakerConfig(CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	})

	return &CircuitBreaker{
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenMaxReq:   cfg.HalfOpenMaxReq,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. In the half-open state it
// also reserves a probe slot, which RecordSuccess or RecordFailure
// must release.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Before(b.openUntil) {
			return ErrCircuitOpen
		}
		b.state = CircuitStateHalfOpen
		b.probes = 0
		b.probeOKs = 0
	}

	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.probeOKs++
		if b.probeOKs >= b.halfOpenMaxReq && b.probes == 0 {
			b.state = CircuitStateClosed
			b.failures = 0
			b.openUntil = time.Time{}
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.trip()
	case CircuitStateOpen:
		// A straggler failing while open pushes the deadline out.
		b.openUntil = b.now().Add(b.openTimeout)
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && !b.now().Before(b.openUntil) {
		return CircuitStateHalfOpen
	}

	return b.state
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitStateOpen
	b.openUntil = b.now().Add(b.openTimeout)
	b.probes = 0
	b.probeOKs = 0
}
