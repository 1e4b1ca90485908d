package jangkau

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL sets the base URL prepended to relative endpoint templates
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithDefaultHeader adds a header sent with every request
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		c.defaultHeaders.Add(key, value)
	}
}

// WithDefaultHeaders replaces the default header set
func WithDefaultHeaders(headers http.Header) Option {
	return func(c *Client) {
		c.defaultHeaders = headers
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCacheTTL sets the default cache entry lifetime
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// WithMemoryCache replaces the response cache with a sized in-memory cache
func WithMemoryCache(maxSize int, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewMemoryCache(maxSize, ttl)
		c.cacheTTL = ttl
	}
}

// WithCustomCache sets a custom cache implementation
func WithCustomCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithRedisCache switches response caching to Redis
func WithRedisCache(client *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewRedisCache(client, WithRedisTTL(ttl))
		c.cacheTTL = ttl
	}
}

// WithoutCache disables response caching entirely
func WithoutCache() Option {
	return func(c *Client) {
		c.cache = nil
	}
}

// WithoutDeduplication turns off the read-call de-duplication default;
// endpoints can still opt back in individually
func WithoutDeduplication() Option {
	return func(c *Client) {
		c.dedupeReads = false
	}
}

// WithLoadingHooks sets the callbacks fired when aggregate loading state
// becomes visible and when it clears
func WithLoadingHooks(hooks LoadingHooks) Option {
	return func(c *Client) {
		c.loadingHooks = hooks
	}
}

// WithLoadingDebounce sets how long loading must persist before the start
// hook fires; zero fires immediately
func WithLoadingDebounce(d time.Duration) Option {
	return func(c *Client) {
		c.loadingDebounce = d
	}
}

// WithBeforeInterceptor sets the hook run before each request is sent
func WithBeforeInterceptor(fn BeforeInterceptor) Option {
	return func(c *Client) {
		c.interceptBefore = fn
	}
}

// WithAfterInterceptor sets the hook run on each parsed response payload
func WithAfterInterceptor(fn AfterInterceptor) Option {
	return func(c *Client) {
		c.interceptAfter = fn
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimiter sets the rate limiter
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithCircuitBreaker sets the circuit breaker configuration
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithMetricsRegistry enables metrics collection on a caller-owned registry
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollectorWithRegistry(registry)
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithZerologLogger enables debug logging through an existing zerolog logger
func WithZerologLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewZerologLogger(logger)
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithExtractStrategies replaces the envelope extraction chain
func WithExtractStrategies(strategies ...ExtractStrategy) Option {
	return func(c *Client) {
		c.extractStrategies = strategies
	}
}

// WithExtractKeys replaces the envelope extraction chain with the given
// flat keys, probed in order
func WithExtractKeys(keys ...string) Option {
	return func(c *Client) {
		strategies := make([]ExtractStrategy, 0, len(keys))
		for _, key := range keys {
			strategies = append(strategies, keyStrategy(key))
		}
		c.extractStrategies = strategies
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateCoreConfig()...)
	errors = append(errors, c.validateCacheConfig()...)
	errors = append(errors, c.validateRateLimiterConfig()...)
	errors = append(errors, c.validateCircuitBreakerConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateMiddlewareConfig()...)
	errors = append(errors, c.validateExtremeValues()...)

	if len(errors) > 0 {
		return &RequestError{
			Type:      ErrorTypeValidation,
			Message:   "configuration validation failed",
			Cause:     fmt.Errorf("validation errors: %v", errors),
			Timestamp: time.Now(),
		}
	}

	return nil
}

// validateCoreConfig validates transport and timeout configuration
func (c *Client) validateCoreConfig() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}

	if c.timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}

	return errors
}

// validateCacheConfig validates cache configuration
func (c *Client) validateCacheConfig() []string {
	var errors []string

	if c.cache != nil && c.cacheTTL <= 0 {
		errors = append(errors, "cacheTTL must be positive when cache is enabled")
	}

	return errors
}

// validateRateLimiterConfig validates rate limiter configuration
func (c *Client) validateRateLimiterConfig() []string {
	var errors []string

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			errors = append(errors, "rateLimiter maxTokens must be positive")
		}
		if c.rateLimiter.refillRate <= 0 {
			errors = append(errors, "rateLimiter refillRate must be positive")
		}
	}

	return errors
}

// validateCircuitBreakerConfig validates circuit breaker configuration
func (c *Client) validateCircuitBreakerConfig() []string {
	var errors []string

	if c.circuitBreaker != nil {
		if c.circuitBreaker.config.FailureThreshold <= 0 {
			errors = append(errors, "circuitBreaker FailureThreshold must be positive")
		}
		if c.circuitBreaker.config.RecoveryTimeout <= 0 {
			errors = append(errors, "circuitBreaker RecoveryTimeout must be positive")
		}
		if c.circuitBreaker.config.SuccessThreshold <= 0 {
			errors = append(errors, "circuitBreaker SuccessThreshold must be positive")
		}
	}

	return errors
}

// validateDebugConfig validates debug configuration
func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}

	return errors
}

// validateMiddlewareConfig validates middleware configuration
func (c *Client) validateMiddlewareConfig() []string {
	var errors []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}

// validateExtremeValues validates that configuration values are within reasonable bounds
func (c *Client) validateExtremeValues() []string {
	var errors []string

	if c.timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m may cause requests to hang for too long")
	}

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens > 1000000 {
			errors = append(errors, "rateLimiter maxTokens > 1M may cause memory issues")
		}
		if c.rateLimiter.refillRate > 0 && c.rateLimiter.refillRate < time.Millisecond {
			errors = append(errors, "rateLimiter refillRate < 1ms may cause excessive CPU usage")
		}
	}

	if c.cache != nil && c.cacheTTL > 24*time.Hour {
		errors = append(errors, "cacheTTL > 24h may cause stale data issues")
	}

	if c.loadingDebounce > 10*time.Second {
		errors = append(errors, "loadingDebounce > 10s delays feedback for too long")
	}

	return errors
}
