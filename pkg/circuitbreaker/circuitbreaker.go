package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows trial requests to test whether the dependency recovered.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Option configures a Breaker.
type Option func(*Breaker)

// WithStateChange registers a callback invoked after every transition.
// It runs without the breaker lock held.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// WithName labels the breaker in state change callbacks.
func WithName(name string) Option {
	return func(b *Breaker) { b.name = name }
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	name                 string
	failureThreshold     uint32        // Consecutive failures that trip the circuit.
	successThreshold     uint32        // Consecutive HalfOpen successes that close it.
	timeout              time.Duration // How long the circuit stays Open.
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	onChange             func(name string, from, to State)
	now                  func() time.Time
	mutex                sync.Mutex
}

// New creates a breaker.
// failureThreshold: consecutive failures required to open the circuit.
// successThreshold: consecutive successes in half-open required to close it.
// timeout: how long the circuit remains open before moving to half-open.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		failureThreshold: max(failureThreshold, 1),
		successThreshold: max(successThreshold, 1),
		timeout:          timeout,
		state:            Closed,
		now:              time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// State returns the current state, moving Open to HalfOpen when the timeout
// has elapsed.
func (cb *Breaker) State() State {
	cb.mutex.Lock()
	from, to := cb.advance()
	cb.mutex.Unlock()
	cb.notify(from, to)
	return to
}

// advance assumes the lock is held and returns the state before and after.
func (cb *Breaker) advance() (State, State) {
	from := cb.state
	if cb.state == Open && cb.now().Sub(cb.openedAt) > cb.timeout {
		cb.state = HalfOpen
		cb.consecutiveSuccesses = 0
	}
	return from, cb.state
}

func (cb *Breaker) notify(from, to State) {
	if from != to && cb.onChange != nil {
		cb.onChange(cb.name, from, to)
	}
}

// Do runs req if the circuit allows it and records the outcome.
func (cb *Breaker) Do(req func() error) error {
	cb.mutex.Lock()
	from, to := cb.advance()
	cb.mutex.Unlock()
	cb.notify(from, to)

	if to == Open {
		return ErrCircuitOpen
	}
	err := req()

	cb.mutex.Lock()
	from = cb.state
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	to = cb.state
	cb.mutex.Unlock()
	cb.notify(from, to)
	return err
}

// Execute wraps a call returning a value with the breaker logic.
func Execute[T any](cb *Breaker, req func() (T, error)) (T, error) {
	var res T
	err := cb.Do(func() error {
		var err error
		res, err = req()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res, nil
}

func (cb *Breaker) onSuccess() {
	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.reset()
		}
	case Closed:
		cb.consecutiveFailures = 0
	}
}

func (cb *Breaker) onFailure() {
	switch cb.state {
	case HalfOpen:
		cb.trip()
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.trip()
		}
	}
}

// trip opens the circuit.
func (cb *Breaker) trip() {
	cb.state = Open
	cb.openedAt = cb.now()
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
}

// reset closes the circuit and resets all counters.
func (cb *Breaker) reset() {
	cb.state = Closed
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
}
