package jangkau

import (
	"sync/atomic"
	"time"
)

// RateLimiter is a token bucket gating dispatches. One token buys one
// network call; tokens refill at a fixed interval up to the bucket size.
// All operations are lock-free.
type RateLimiter struct {
	maxTokens  int64
	tokens     int64
	refillRate time.Duration
	lastRefill int64
}

// NewRateLimiter returns a bucket holding maxTokens, refilling one token
// every refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		maxTokens:  int64(maxTokens),
		tokens:     int64(maxTokens),
		refillRate: refillRate,
		lastRefill: time.Now().UnixNano(),
	}
}

// Allow consumes a token when one is available.
func (rl *RateLimiter) Allow() bool {
	rl.refill()
	return rl.consume()
}

// Tokens reports the number of tokens currently available.
func (rl *RateLimiter) Tokens() int {
	rl.refill()
	return int(atomic.LoadInt64(&rl.tokens))
}

func (rl *RateLimiter) refill() {
	now := time.Now().UnixNano()

	for {
		currentTokens := atomic.LoadInt64(&rl.tokens)
		lastRefill := atomic.LoadInt64(&rl.lastRefill)

		elapsed := now - lastRefill
		tokensToAdd := int64(0)
		if rl.refillRate > 0 {
			tokensToAdd = elapsed / int64(rl.refillRate)
		}
		if tokensToAdd == 0 {
			return
		}

		newTokens := currentTokens + tokensToAdd
		if newTokens > rl.maxTokens {
			newTokens = rl.maxTokens
		}

		// Advance lastRefill by whole refill intervals so partial elapsed
		// time keeps accruing.
		newLastRefill := lastRefill + tokensToAdd*int64(rl.refillRate)
		if !atomic.CompareAndSwapInt64(&rl.lastRefill, lastRefill, newLastRefill) {
			continue
		}

		atomic.StoreInt64(&rl.tokens, newTokens)
		return
	}
}

func (rl *RateLimiter) consume() bool {
	for {
		currentTokens := atomic.LoadInt64(&rl.tokens)
		if currentTokens <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&rl.tokens, currentTokens, currentTokens-1) {
			return true
		}
	}
}
