package observability

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means the circuit breaker is closed and requests are allowed.
	StateClosed CircuitBreakerState = iota
	// StateOpen means the circuit breaker is open and requests are blocked.
	StateOpen
	// StateHalfOpen lets a limited number of probe requests through.
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips after maxFailures consecutive counted failures and
// stays open for cooldown. Errors for which the ignore predicate returns
// true (caller mistakes such as validation errors) do not count.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	halfOpenMax int
	ignore      func(error) bool
	now         func() time.Time

	mu           sync.Mutex
	state        CircuitBreakerState
	failures     int
	successCount int
	inFlight     int
	openedAt     time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	cb := &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		halfOpenMax: 1,
		now:         time.Now,
	}
	RecordCircuitBreakerStatus(name, StateClosed)
	return cb
}

// WithIgnore sets the predicate for errors that should not trip the breaker.
func (cb *CircuitBreaker) WithIgnore(ignore func(error) bool) *CircuitBreaker {
	cb.ignore = ignore
	return cb
}

// Call executes fn unless the breaker is open. The mutex is not held while
// fn runs, so slow provider calls do not serialize.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn()
	cb.release(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.setState(StateHalfOpen)
		cb.successCount = 0
		cb.inFlight = 0
	}
	switch cb.state {
	case StateOpen:
		return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	case StateHalfOpen:
		if cb.inFlight >= cb.halfOpenMax {
			return fmt.Errorf("%w: %s is probing", ErrCircuitOpen, cb.name)
		}
	}
	cb.inFlight++
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.inFlight > 0 {
		cb.inFlight--
	}

	if err != nil && (cb.ignore == nil || !cb.ignore(err)) {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.openedAt = cb.now()
			cb.setState(StateOpen)
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.halfOpenMax {
			cb.failures = 0
			cb.successCount = 0
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) setState(s CircuitBreakerState) {
	cb.state = s
	RecordCircuitBreakerStatus(cb.name, s)
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.successCount = 0
	cb.inFlight = 0
	cb.setState(StateClosed)
}
