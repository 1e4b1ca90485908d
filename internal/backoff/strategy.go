// Package backoff provides pluggable delay calculators for retry loops.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy computes the delay before a retry attempt. attempt counts from 0
// for the first retry; maxDelay must be positive.
type Strategy interface {
	Calculate(attempt int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialJitter grows the delay by multiplier each attempt and adds a
// uniform random fraction of up to jitter on top, capped at maxDelay.
type ExponentialJitter struct{}

func (ExponentialJitter) Calculate(attempt int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(baseDelay) * math.Pow(multiplier, float64(attempt)))
	if delay < 0 || delay > maxDelay {
		delay = maxDelay
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		bump := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+bump > maxDelay {
			delay = maxDelay
		} else {
			delay += bump
		}
	}
	return delay
}

// DecorrelatedJitter draws the delay uniformly from
// [base, min(cap, base*3^attempt)], the stateless variant of AWS
// decorrelated jitter. The multiplier and jitter arguments are unused.
type DecorrelatedJitter struct{}

func (DecorrelatedJitter) Calculate(attempt int, baseDelay, maxDelay time.Duration, _, _ float64) time.Duration {
	if attempt <= 0 {
		return baseDelay
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(baseDelay)
	upper := base * math.Pow(3, float64(attempt))
	if upper > float64(maxDelay) || upper < 0 {
		upper = float64(maxDelay)
	}
	if upper < base {
		upper = base
	}

	delay := time.Duration(base + rand.Float64()*(upper-base))
	if delay < 0 || delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// clampJitter bounds jitter to [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}
