// Package jangkau turns declared HTTP endpoints into callable functions
// layered with client-side orchestration:
//
//   - Named endpoint registry (write-once Get/Post/Put/Patch/Del)
//   - Response caching (in-memory or Redis) with stale-while-revalidate
//   - Request de-duplication (merges concurrent identical in-flight calls)
//   - Cancellation by endpoint name, per-call timeouts
//   - Aggregate loading state with debounced visibility hooks
//   - Response normalization: parse, error classification, envelope extraction
//   - Pagination (offset/page/cursor), polling and retry helpers
//   - Rate limiting, circuit breaker, middleware chain
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area - functional options configure everything
//   - Callables over request plumbing: register once, invoke anywhere
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via user supplied middleware & pluggable cache / metrics
//
// Typical usage:
//
//	client := jangkau.New(
//	    jangkau.WithBaseURL("https://api.example.com"),
//	    jangkau.WithMemoryCache(200, 5*time.Minute),
//	    jangkau.WithRateLimiter(10, time.Second),
//	    jangkau.WithCircuitBreaker(jangkau.CircuitBreakerConfig{}),
//	)
//	getUser, _ := client.Get("getUser", "/users/:id")
//	res, err := getUser(ctx, jangkau.Params{"id": 42})
//
// Failures surface as *RequestError values, never panics; higher-level
// helpers (Retry, Poll, GetAll) inspect them without unwinding. The library
// avoids opinionated logging: provide a Logger (e.g. via WithSimpleLogger)
// and enable debug flags selectively for insight without noise.
package jangkau
