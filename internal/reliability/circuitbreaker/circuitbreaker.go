package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// ErrOpen is returned by Call while the breaker rejects requests
var ErrOpen = errors.New("circuit breaker is open")

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

// CircuitBreaker fails fast after failureThreshold consecutive failures. Once
// timeout has passed since the last failure it lets probes through (half-open)
// and closes again after successThreshold successes.
type CircuitBreaker struct {
	failureThreshold int32
	successThreshold int32
	timeout          time.Duration

	mu            sync.Mutex
	state         State
	failures      int32
	successes     int32
	lastFailure   time.Time
	onStateChange func(from, to State)
	now           func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(failureThreshold, successThreshold int32, timeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if successThreshold < 1 {
		successThreshold = 1
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// SetStateChangeCallback registers a callback for state transitions.
// It runs outside the breaker's lock.
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// AllowRequest reports whether a request may go out, moving an open breaker
// to half-open once its timeout has elapsed
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return true
	}
	if cb.now().Sub(cb.lastFailure) <= cb.timeout {
		cb.mu.Unlock()
		return false
	}
	notify := cb.transitionLocked(StateHalfOpen)
	cb.mu.Unlock()

	notify()
	return true
}

// RecordSuccess resets the failure streak and closes a half-open breaker
// after enough successes
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			notify = cb.transitionLocked(StateClosed)
		}
	}
	cb.mu.Unlock()

	notify()
}

// RecordFailure trips a closed breaker at the threshold and reopens a half-open one
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.lastFailure = cb.now()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			notify = cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		notify = cb.transitionLocked(StateOpen)
	}
	cb.mu.Unlock()

	notify()
}

// Call runs fn when the circuit allows it. Errors for which isFailure returns
// true count against the breaker; a nil isFailure counts every error.
func (cb *CircuitBreaker) Call(fn func() error, isFailure func(error) bool) error {
	if !cb.AllowRequest() {
		return ErrOpen
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return err
}

// transitionLocked switches state, resets counters and returns the callback
// invocation to run once the lock is released. Caller holds cb.mu.
func (cb *CircuitBreaker) transitionLocked(to State) func() {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0

	fn := cb.onStateChange
	if fn == nil || from == to {
		return func() {}
	}
	return func() { fn(from, to) }
}
