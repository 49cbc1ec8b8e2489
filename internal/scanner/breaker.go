package scanner

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CIRCUIT BREAKER - back off after consecutive failed cycles
// ═══════════════════════════════════════════════════════════════════════════════

// CircuitBreaker stretches the wait after repeated failures so an outage of
// the data API is not polled every few seconds.
type CircuitBreaker struct {
	mu sync.Mutex

	// Configuration
	maxFailures int
	cooldown    time.Duration

	// State
	failures int
	tripped  bool
	reason   string
}

// NewCircuitBreaker creates a new circuit breaker. maxFailures <= 0 disables it.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
	}
}

// RecordFailure counts a failed cycle and trips once the limit is reached
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.maxFailures <= 0 || cb.failures < cb.maxFailures || cb.tripped {
		return
	}

	cb.tripped = true
	cb.reason = err.Error()
	log.Warn().
		Str("reason", cb.reason).
		Int("consecutive_failures", cb.failures).
		Dur("cooldown", cb.cooldown).
		Msg("🚨 CIRCUIT BREAKER TRIPPED")
}

// RecordSuccess clears the failure streak
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.tripped {
		log.Info().Msg("✅ Circuit breaker reset")
	}
	cb.failures = 0
	cb.tripped = false
	cb.reason = ""
}

// Wait returns how long to sleep before the next cycle
func (cb *CircuitBreaker) Wait(interval time.Duration) time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// While tripped, one probe cycle per cooldown; a failed probe keeps it tripped.
	if !cb.tripped || cb.cooldown < interval {
		return interval
	}
	return cb.cooldown
}

// IsTripped returns current trip state
func (cb *CircuitBreaker) IsTripped() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.tripped
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() (failures int, tripped bool, reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures, cb.tripped, cb.reason
}
