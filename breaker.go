package jangkau

import (
	"sync/atomic"
	"time"
)

// CircuitState is the breaker position.
type CircuitState int64

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreakerConfig tunes the breaker thresholds. Zero fields take the
// defaults applied by NewCircuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// CircuitBreaker trips open after consecutive failures and probes recovery
// through a half-open state. All transitions are lock-free.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       int64
	failures    int64
	successes   int64
	lastFailure int64
}

// NewCircuitBreaker creates a breaker with config, defaulting unset fields
// to 5 failures, 60s recovery and 2 half-open successes.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}

	return &CircuitBreaker{
		config: config,
		state:  int64(StateClosed),
	}
}

// Allow reports whether a call may proceed. An open breaker past its
// recovery timeout transitions to half-open and admits the probe call.
func (cb *CircuitBreaker) Allow() bool {
	now := time.Now().UnixNano()

	switch CircuitState(atomic.LoadInt64(&cb.state)) {
	case StateClosed:
		return true
	case StateOpen:
		lastFailure := atomic.LoadInt64(&cb.lastFailure)
		if now-lastFailure >= int64(cb.config.RecoveryTimeout) {
			if atomic.CompareAndSwapInt64(&cb.state, int64(StateOpen), int64(StateHalfOpen)) {
				atomic.StoreInt64(&cb.successes, 0)
				return true
			}
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordFailure counts a failed call. Enough failures while closed trip the
// breaker; any failure while half-open re-opens it.
func (cb *CircuitBreaker) RecordFailure() {
	atomic.StoreInt64(&cb.lastFailure, time.Now().UnixNano())

	switch CircuitState(atomic.LoadInt64(&cb.state)) {
	case StateClosed:
		if atomic.AddInt64(&cb.failures, 1) >= int64(cb.config.FailureThreshold) {
			atomic.StoreInt64(&cb.state, int64(StateOpen))
		}
	case StateHalfOpen:
		atomic.AddInt64(&cb.failures, 1)
		atomic.StoreInt64(&cb.state, int64(StateOpen))
		atomic.StoreInt64(&cb.successes, 0)
	}
}

// RecordSuccess counts a successful call. Enough successes while half-open
// close the breaker and reset its counters.
func (cb *CircuitBreaker) RecordSuccess() {
	if CircuitState(atomic.LoadInt64(&cb.state)) != StateHalfOpen {
		return
	}
	if atomic.AddInt64(&cb.successes, 1) >= int64(cb.config.SuccessThreshold) {
		atomic.StoreInt64(&cb.state, int64(StateClosed))
		atomic.StoreInt64(&cb.failures, 0)
		atomic.StoreInt64(&cb.successes, 0)
	}
}

// State reports the breaker's current position.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(atomic.LoadInt64(&cb.state))
}
