package jangkau

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ambiyansyah-risyal/jangkau/internal/backoff"
)

const (
	// DefaultRetries is the retry budget after the first attempt.
	DefaultRetries = 3
	// DefaultRetryDelay is the wait before the first retry.
	DefaultRetryDelay = time.Second
	// DefaultRetryBackoff multiplies the delay per retry.
	DefaultRetryBackoff = 2.0
	// DefaultRetryMaxDelay caps a single wait between attempts.
	DefaultRetryMaxDelay = 30 * time.Second
)

// RetryConfig drives Retry. Zero values take the defaults above. Without
// jitter the wait before retry n is exactly Delay * Backoff^n, capped at
// MaxDelay; Jitter switches to the randomized exponential strategy and
// Decorrelated to decorrelated jitter, which ignores Backoff and Jitter.
type RetryConfig struct {
	Retries      int
	Delay        time.Duration
	Backoff      float64
	MaxDelay     time.Duration
	Jitter       float64
	Decorrelated bool

	// RetryIf filters which failures are retried. Nil retries every
	// failure; IsTransient is the usual filter. Canceled contexts are
	// never retried.
	RetryIf func(error) bool
}

// Retry runs fn until it succeeds or the retry budget is spent, waiting a
// growing delay between attempts. The decision to retry is scoped to fn's
// own returned error; after exhaustion the last error is returned as-is.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (*Result, error)) (*Result, error) {
	return retryLoop(ctx, cfg, fn, nil)
}

// Retry is the client-bound variant of the package-level Retry: identical
// semantics plus retry metrics and debug logging.
func (c *Client) Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (*Result, error)) (*Result, error) {
	return retryLoop(ctx, cfg, fn, c)
}

func retryLoop(ctx context.Context, cfg RetryConfig, fn func(context.Context) (*Result, error), c *Client) (*Result, error) {
	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	multiplier := cfg.Backoff
	if multiplier <= 0 {
		multiplier = DefaultRetryBackoff
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultRetryMaxDelay
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			reqErr.Attempt = attempt
		}
		lastErr = err

		if attempt >= retries {
			break
		}
		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			break
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			break
		}

		wait := retryDelay(attempt, delay, maxDelay, multiplier, cfg)
		if c != nil {
			c.metrics.RecordRetry(endpointOf(lastErr), attempt+1)
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Debug("Retrying call", "attempt", attempt+1, "delay", wait, "error", lastErr)
			}
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			typ := ErrorTypeCanceled
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				typ = ErrorTypeTimeout
			}
			return nil, &RequestError{
				Type:      typ,
				Message:   "retry abandoned",
				Cause:     ctx.Err(),
				Endpoint:  endpointOf(lastErr),
				Attempt:   attempt,
				Timestamp: time.Now(),
			}
		}
	}
	return nil, lastErr
}

// retryDelay computes the wait before retry number attempt, counted from 0.
func retryDelay(attempt int, base, max time.Duration, multiplier float64, cfg RetryConfig) time.Duration {
	switch {
	case cfg.Decorrelated:
		return backoff.DecorrelatedJitter{}.Calculate(attempt, base, max, multiplier, cfg.Jitter)
	case cfg.Jitter > 0:
		return backoff.ExponentialJitter{}.Calculate(attempt, base, max, multiplier, cfg.Jitter)
	default:
		d := time.Duration(float64(base) * math.Pow(multiplier, float64(attempt)))
		if d <= 0 || d > max {
			d = max
		}
		return d
	}
}

func endpointOf(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Endpoint != "" {
		return reqErr.Endpoint
	}
	return "unknown"
}
