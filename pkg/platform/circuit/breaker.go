// Package circuit implements the consecutive-failure breaker that guards the
// agent HTTP clients. An agent that stops answering trips the breaker so the
// lifecycle flows fail fast instead of stacking up timeouts.
package circuit

import "sync"

// State is the breaker position.
type State int

const (
	// StateClosed lets requests through.
	StateClosed State = iota
	// StateOpen short-circuits requests until the agent recovers.
	StateOpen
)

// StateChange reports a transition caused by the last recorded outcome. At
// most one of the fields is set.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive outcomes per collaborator. failureLimit misses
// in a row open it; successLimit hits in a row while open close it again.
type Breaker struct {
	mu sync.Mutex

	name         string
	state        State
	failures     int
	successes    int
	failureLimit int
	successLimit int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureLimit = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successLimit = n
		}
	}
}

// New creates a closed Breaker named for logging and metrics.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:         name,
		failureLimit: 5,
		successLimit: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name identifies the breaker in logs and metric labels.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen reports whether requests should be short-circuited.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordFailure notes a failed call. The first return value tells the caller
// whether the circuit is now open.
func (b *Breaker) RecordFailure() (open bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0

	switch {
	case b.state == StateOpen:
		return true, StateChange{}
	case b.failures >= b.failureLimit:
		b.state = StateOpen
		return true, StateChange{Opened: true}
	default:
		return false, StateChange{}
	}
}

// RecordSuccess notes a completed call. The first return value tells the
// caller whether the circuit is closed.
func (b *Breaker) RecordSuccess() (closed bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes++
		if b.successes < b.successLimit {
			return false, StateChange{}
		}
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		return true, StateChange{Closed: true}
	}

	b.failures = 0
	return true, StateChange{}
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
