package ledger

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker guarding the upstream POS API (Closed → Open → Half-Open).
// When the upstream is down every core operation would otherwise block on a
// full timeout; the breaker makes those calls fail fast instead.

// BreakerState represents the current breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // normal — requests flow
	BreakerOpen                         // tripped — fast-fail all requests
	BreakerHalfOpen                     // probing — one request allowed
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when Execute is called while the breaker is open.
var ErrBreakerOpen = errors.New("ledger: circuit breaker is open")

// Breaker implements the pattern with thread-safe state transitions.
type Breaker struct {
	mu              sync.Mutex
	state           BreakerState
	failures        int
	successes       int
	lastFailureTime time.Time

	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewBreaker creates a breaker in the closed state. Zero or negative
// parameters fall back to defaults (5 failures, 2 probe successes, 30s open).
func NewBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
	}
}

// State returns the current breaker state (safe for concurrent reads).
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.lastFailureTime) >= b.openTimeout {
		b.state = BreakerHalfOpen
		b.successes = 0
	}
	return b.state
}

// Execute runs fn through the breaker.
// Returns ErrBreakerOpen immediately if the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	if b.State() == BreakerOpen {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// onFailure records a failure (must be called under lock).
func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.failureThreshold {
			b.state = BreakerOpen
			b.successes = 0
		}
	case BreakerHalfOpen:
		// Probe failed — back to open
		b.state = BreakerOpen
		b.failures = 0
	}
}

// onSuccess records a success (must be called under lock).
func (b *Breaker) onSuccess() {
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}
