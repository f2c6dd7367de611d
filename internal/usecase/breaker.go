package usecase

import (
	"sync"
	"time"
)

// Breaker defaults
const (
	defaultFailureThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

// BreakerConfig holds circuit breaker parameters shared by all strategies
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// CircuitBreaker guards one external search strategy. The circuit opens after
// the failure threshold is reached and resets optimistically once the
// cooldown elapses; there is no tracked half-open state, so concurrent
// callers in the reset window may all attempt at once.
type CircuitBreaker struct {
	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
	open        bool
	now         func() time.Time
}

// NewCircuitBreaker creates a closed breaker with the given configuration
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	threshold := config.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	cooldown := config.Cooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed, lazily closing the circuit when
// the cooldown has elapsed since the last failure
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open && b.now().Sub(b.lastFailure) >= b.cooldown {
		b.open = false
		b.failures = 0
	}
	return !b.open
}

// RecordSuccess resets the failure count and closes the circuit
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.open = false
}

// RecordFailure increments the failure count, opening the circuit once the
// threshold is reached
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	if b.failures >= b.threshold {
		b.open = true
	}
}

// IsOpen reports the circuit state without the lazy reset
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// RemainingCooldown returns how long until an open circuit allows another
// attempt; zero when the circuit is closed or the cooldown has elapsed
func (b *CircuitBreaker) RemainingCooldown() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return 0
	}
	remaining := b.cooldown - b.now().Sub(b.lastFailure)
	if remaining < 0 {
		return 0
	}
	return remaining
}
