package jangkau

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ambiyansyah-risyal/jangkau/internal/singleflight"
)

// DefaultTimeout bounds a call when neither the endpoint nor the invocation
// overrides it.
const DefaultTimeout = 30 * time.Second

// Client turns registered endpoint definitions into callables layered with
// caching, de-duplication, cancellation by name, loading aggregation, rate
// limiting, circuit breaking, middleware and metrics. It is safe for
// concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	defaultHeaders http.Header
	timeout        time.Duration

	cache    Cache
	cacheTTL time.Duration

	inflight *inflightRegistry
	cancels  *cancelRegistry
	loading  *loadingAggregator
	refresh  *singleflight.Group
	pollers  *pollRegistry

	loadingHooks    LoadingHooks
	loadingDebounce time.Duration
	dedupeReads     bool

	interceptBefore BeforeInterceptor
	interceptAfter  AfterInterceptor
	middleware      []Middleware

	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	extractStrategies []ExtractStrategy

	mu        sync.Mutex
	endpoints map[string]*Endpoint
	dataStore map[string]any
	messages  Messages

	validationError error
}

// New constructs a Client from the provided functional options. A best
// effort validation runs at construction; call IsValid / ValidationError
// for the outcome.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:        &http.Client{},
		defaultHeaders:    http.Header{},
		timeout:           DefaultTimeout,
		cache:             NewMemoryCache(DefaultCacheSize, DefaultCacheTTL),
		cacheTTL:          DefaultCacheTTL,
		inflight:          newInflightRegistry(),
		cancels:           newCancelRegistry(),
		refresh:           singleflight.New(),
		loadingDebounce:   DefaultLoadingDebounce,
		dedupeReads:       true,
		extractStrategies: defaultExtractStrategies(),
		debug:             DefaultDebugConfig(),
		endpoints:         make(map[string]*Endpoint),
		dataStore:         make(map[string]any),
	}
	client.pollers = newPollRegistry()

	for _, option := range options {
		option(client)
	}

	hooks := client.loadingHooks
	client.loading = newLoadingAggregator(client.loadingDebounce, LoadingHooks{
		Start: func() {
			client.metrics.RecordLoadingState(true)
			if hooks.Start != nil {
				hooks.Start()
			}
		},
		End: func() {
			client.metrics.RecordLoadingState(false)
			if hooks.End != nil {
				hooks.End()
			}
		},
	})

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Call invokes a registered endpoint by name without a body. This is the
// lookup path used by the pagination and polling helpers.
func (c *Client) Call(ctx context.Context, name string, params Params, opts ...CallOption) (*Result, error) {
	ep, ok := c.endpoint(name)
	if !ok {
		return nil, &RequestError{
			Type:      ErrorTypeRegistry,
			Message:   fmt.Sprintf("unknown endpoint %q", name),
			Cause:     ErrEndpointUnknown,
			Endpoint:  name,
			Timestamp: time.Now(),
		}
	}
	return c.execute(ctx, ep, nil, params, opts)
}

// execute drives one call through the full state machine: message reset,
// cache probe, dedupe join, dispatch. Every call terminates as either a
// *Result or a *RequestError; nothing panics.
func (c *Client) execute(ctx context.Context, ep *Endpoint, body any, params Params, opts []CallOption) (*Result, error) {
	start := time.Now()
	co := applyCallOptions(opts)
	requestID := c.newRequestID()

	c.setMessages(Messages{})

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting call", "requestID", requestID, "endpoint", ep.name, "method", ep.method)
	}

	key := ep.cacheKey
	if key == "" {
		key = RequestKey(ep.name, ep.method, params)
	}

	if c.cacheEnabled(ep, co) && !co.refresh {
		if entry, found := c.cache.Get(key); found {
			if res, err := c.resultFromEntry(ep, entry, requestID, start); err == nil {
				c.metrics.RecordCacheHit(ep.method, ep.name)
				if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
					c.logger.Debug("Cache hit", "requestID", requestID, "cacheKey", key)
				}
				if ep.swr {
					c.swrRefresh(ep, params, co, key)
				}
				return res, nil
			}
			// Undecodable entry, drop it and fetch fresh.
			c.cache.Delete(key)
		}
		c.metrics.RecordCacheMiss(ep.method, ep.name)
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("Cache miss", "requestID", requestID, "cacheKey", key)
		}
	}

	if ep.dedupe && isReadMethod(ep.method) {
		call, owner := c.inflight.begin(key)
		if !owner {
			c.metrics.RecordDedupeHit(ep.method, ep.name)
			if c.debug != nil && c.debug.Enabled && c.debug.LogDedupe && c.logger != nil {
				c.logger.Debug("Joined in-flight call", "requestID", requestID, "key", key)
			}
			return c.waitShared(ctx, ep, call, requestID)
		}
		res, err := c.dispatch(ctx, ep, body, params, co, key, requestID)
		c.inflight.settle(key, call, res, err)
		return res, err
	}

	return c.dispatch(ctx, ep, body, params, co, key, requestID)
}

// waitShared blocks a joiner on the owner's outcome, honoring the joiner's
// own context.
func (c *Client) waitShared(ctx context.Context, ep *Endpoint, call *inflightCall, requestID string) (*Result, error) {
	res, err := call.wait(ctx)
	if err == nil {
		return res, nil
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return res, err
	}

	// The joiner's context ended before the shared call settled.
	typ := ErrorTypeCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		typ = ErrorTypeTimeout
	}
	rerr := &RequestError{
		Type:      typ,
		Message:   "abandoned shared call",
		Cause:     err,
		RequestID: requestID,
		Endpoint:  ep.name,
		Method:    ep.method,
		Timestamp: time.Now(),
	}
	c.setMessages(Messages{Err: rerr})
	c.metrics.RecordError(typ, ep.method, ep.name)
	return nil, rerr
}

// dispatch applies the limiter and breaker gates, registers the call with
// the cancellation and loading layers, performs it and feeds the breaker.
func (c *Client) dispatch(ctx context.Context, ep *Endpoint, body any, params Params, co callOptions, key, requestID string) (*Result, error) {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
			c.logger.Warn("Rate limit exceeded", "requestID", requestID, "endpoint", ep.name)
		}
		rerr := &RequestError{
			Type:      ErrorTypeRateLimit,
			Message:   "rate limit exceeded",
			Cause:     ErrRateLimited,
			RequestID: requestID,
			Endpoint:  ep.name,
			Method:    ep.method,
			Timestamp: time.Now(),
		}
		c.setMessages(Messages{Err: rerr})
		c.metrics.RecordError(ErrorTypeRateLimit, ep.method, ep.name)
		return nil, rerr
	}

	if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
		rerr := &RequestError{
			Type:      ErrorTypeCircuitOpen,
			Message:   "circuit breaker is open",
			Cause:     ErrCircuitOpen,
			RequestID: requestID,
			Endpoint:  ep.name,
			Method:    ep.method,
			Timestamp: time.Now(),
		}
		c.setMessages(Messages{Err: rerr})
		c.metrics.RecordError(ErrorTypeCircuitOpen, ep.method, ep.name)
		return nil, rerr
	}

	callCtx, cancel := context.WithTimeout(ctx, c.effectiveTimeout(ep, co))
	release := c.cancels.register(ep.name, cancel)
	c.loading.inc()
	c.metrics.RecordRequestStart(ep.method, ep.name)
	defer func() {
		cancel()
		release()
		c.loading.dec()
		c.metrics.RecordRequestEnd(ep.method, ep.name)
	}()

	res, err := c.perform(callCtx, ep, body, params, co, key, requestID)

	if c.circuitBreaker != nil {
		c.feedBreaker(err)
	}
	return res, err
}

// feedBreaker translates a call outcome into breaker signals. Only upstream
// health failures count; application rejections and deliberate aborts do
// not.
func (c *Client) feedBreaker(err error) {
	if err == nil {
		c.circuitBreaker.RecordSuccess()
		return
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return
	}
	switch reqErr.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		c.circuitBreaker.RecordFailure()
	case ErrorTypeHTTP:
		if reqErr.StatusCode >= 500 {
			c.circuitBreaker.RecordFailure()
		}
	}
}

// perform executes the network call and normalizes its response: before
// interceptor, middleware chain, parse, classification, extraction, then
// the shared-state and cache effects of the outcome.
func (c *Client) perform(ctx context.Context, ep *Endpoint, body any, params Params, co callOptions, key, requestID string) (*Result, error) {
	start := time.Now()

	path, rest := ResolveURLTemplate(ep.template, params)
	fullURL := c.absoluteURL(path)
	if q := BuildQueryString(rest); q != "" {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + q
	}

	headers := c.mergedHeaders(ep, co)
	info := &RequestInfo{
		Endpoint: ep.name,
		Method:   ep.method,
		URL:      fullURL,
		Params:   params,
		Body:     body,
		Headers:  headers,
	}
	if c.interceptBefore != nil {
		if err := c.interceptBefore(ctx, info); err != nil {
			return c.fail(ep, co, &RequestError{
				Type:      ErrorTypeInterceptor,
				Message:   "before interceptor rejected call",
				Cause:     err,
				RequestID: requestID,
				Endpoint:  ep.name,
				Method:    ep.method,
				URL:       info.URL,
				Timestamp: time.Now(),
				Duration:  time.Since(start),
			})
		}
	}

	bodyReader, contentType, err := encodeBody(info.Body)
	if err != nil {
		return c.fail(ep, co, &RequestError{
			Type:      ErrorTypeValidation,
			Message:   "encode request body",
			Cause:     err,
			RequestID: requestID,
			Endpoint:  ep.name,
			Method:    ep.method,
			URL:       info.URL,
			Timestamp: time.Now(),
			Duration:  time.Since(start),
		})
	}
	if contentType != "" && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", contentType)
	}
	if contentType == "application/json" && headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, info.URL, bodyReader)
	if err != nil {
		return c.fail(ep, co, &RequestError{
			Type:      ErrorTypeValidation,
			Message:   "build request",
			Cause:     err,
			RequestID: requestID,
			Endpoint:  ep.name,
			Method:    ep.method,
			URL:       info.URL,
			Timestamp: time.Now(),
			Duration:  time.Since(start),
		})
	}
	req.Header = headers

	resp, err := c.roundTrip(req)
	if err != nil {
		typ := classifyTransport(ctx, err)
		return c.fail(ep, co, &RequestError{
			Type:      typ,
			Message:   transportMessage(typ),
			Cause:     err,
			RequestID: requestID,
			Endpoint:  ep.name,
			Method:    ep.method,
			URL:       info.URL,
			Timestamp: time.Now(),
			Duration:  time.Since(start),
		})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		typ := classifyTransport(ctx, err)
		return c.fail(ep, co, &RequestError{
			Type:       typ,
			Message:    "read response body",
			Cause:      err,
			RequestID:  requestID,
			Endpoint:   ep.name,
			Method:     ep.method,
			URL:        info.URL,
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
		})
	}

	payload, perr := parseBody(raw, ep.parseMode, ep.parseFunc)
	if perr != nil {
		return c.fail(ep, co, &RequestError{
			Type:       ErrorTypeParse,
			Message:    "parse response body",
			Cause:      perr,
			RequestID:  requestID,
			Endpoint:   ep.name,
			Method:     ep.method,
			URL:        info.URL,
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
		})
	}

	if c.interceptAfter != nil {
		// After-interceptor failures never fail the call.
		if aerr := c.interceptAfter(ctx, payload); aerr != nil {
			if c.logger != nil {
				c.logger.Warn("After interceptor failed", "requestID", requestID, "endpoint", ep.name, "error", aerr)
			}
		}
	}

	httpOK := resp.StatusCode >= 200 && resp.StatusCode < 300
	if classifyError(httpOK, payload) {
		typ := ErrorTypeApplication
		if !httpOK {
			typ = ErrorTypeHTTP
		}
		return c.fail(ep, co, &RequestError{
			Type:       typ,
			Message:    errorMessage(payload),
			RequestID:  requestID,
			Endpoint:   ep.name,
			Method:     ep.method,
			URL:        info.URL,
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
		})
	}

	data := payload
	if !ep.raw {
		if ep.extractor != nil {
			data = ep.extractor(payload)
		} else {
			data = extractPayload(payload, c.extractStrategies)
		}
	}

	res := &Result{
		Endpoint:  ep.name,
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Raw:       raw,
		Payload:   payload,
		Data:      data,
		Message:   successMessage(payload),
		RequestID: requestID,
		Duration:  time.Since(start),
	}

	if !co.background {
		c.setData(ep.name, data)
		c.setMessages(Messages{Success: res.Message})
	}

	if c.cacheEnabled(ep, co) {
		ttl := ep.cacheTTL
		if ttl <= 0 {
			ttl = c.cacheTTL
		}
		c.cache.Set(key, &CacheEntry{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       raw,
		}, ttl)
		c.metrics.RecordCacheSize("default", c.cache.Len())
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("Response cached", "requestID", requestID, "cacheKey", key, "ttl", ttl)
		}
	}

	c.metrics.RecordRequest(ep.method, ep.name, resp.StatusCode, time.Since(start))
	return res, nil
}

// fail records the failure in the shared message state and metrics, and
// returns it as the call's outcome.
func (c *Client) fail(ep *Endpoint, co callOptions, rerr *RequestError) (*Result, error) {
	if !co.background {
		c.setMessages(Messages{Err: rerr})
	}
	c.metrics.RecordError(rerr.Type, ep.method, ep.name)
	c.metrics.RecordRequest(ep.method, ep.name, rerr.StatusCode, rerr.Duration)
	return nil, rerr
}

// resultFromEntry rebuilds a Result from a cached entry, re-running parse
// and extraction so per-endpoint parse configuration applies to hits too.
func (c *Client) resultFromEntry(ep *Endpoint, entry *CacheEntry, requestID string, start time.Time) (*Result, error) {
	payload, err := parseBody(entry.Body, ep.parseMode, ep.parseFunc)
	if err != nil {
		return nil, err
	}

	data := payload
	if !ep.raw {
		if ep.extractor != nil {
			data = ep.extractor(payload)
		} else {
			data = extractPayload(payload, c.extractStrategies)
		}
	}

	return &Result{
		Endpoint:  ep.name,
		Status:    entry.StatusCode,
		Header:    entry.Header,
		Raw:       entry.Body,
		Payload:   payload,
		Data:      data,
		Message:   successMessage(payload),
		FromCache: true,
		RequestID: requestID,
		Duration:  time.Since(start),
	}, nil
}

// swrRefresh launches the stale-while-revalidate background fetch for key.
// At most one refresh runs per key; its outcome only ever updates the
// cache, never the shared data or message state.
func (c *Client) swrRefresh(ep *Endpoint, params Params, co callOptions, key string) {
	go func() {
		c.refresh.TryDo(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), c.effectiveTimeout(ep, co))
			defer cancel()

			background := co
			background.background = true
			background.refresh = true
			_, err := c.perform(ctx, ep, nil, params, background, key, c.newRequestID())
			return nil, err
		})
	}()
}

// roundTrip sends the request through the middleware chain, applied in
// reverse order so the first middleware wraps outermost.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripper(RoundTripperFunc(c.httpClient.Do))
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}
	return current.RoundTrip(req)
}

// cacheEnabled reports whether this call participates in the cache: reads
// only, endpoint not opted out, invocation not opted out.
func (c *Client) cacheEnabled(ep *Endpoint, co callOptions) bool {
	if c.cache == nil || co.noCache || ep.cacheMode == CacheDisabled {
		return false
	}
	return isReadMethod(ep.method)
}

func (c *Client) effectiveTimeout(ep *Endpoint, co callOptions) time.Duration {
	switch {
	case co.timeout > 0:
		return co.timeout
	case ep.timeout > 0:
		return ep.timeout
	case c.timeout > 0:
		return c.timeout
	default:
		return DefaultTimeout
	}
}

func (c *Client) absoluteURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimSuffix(c.baseURL, "/")
	if base == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// mergedHeaders layers client defaults, endpoint headers and per-call
// headers, later layers overriding earlier ones.
func (c *Client) mergedHeaders(ep *Endpoint, co callOptions) http.Header {
	headers := http.Header{}
	for k, vs := range c.defaultHeaders {
		headers[k] = append([]string(nil), vs...)
	}
	for k, vs := range ep.headers {
		headers[k] = append([]string(nil), vs...)
	}
	for k, vs := range co.headers {
		headers[k] = append([]string(nil), vs...)
	}
	return headers
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return ""
}

// encodeBody turns a call body into a reader. url.Values become a form,
// readers, byte slices and strings pass through untouched, anything else is
// JSON-encoded.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

func classifyTransport(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return ErrorTypeCanceled
	default:
		return ErrorTypeNetwork
	}
}

func transportMessage(typ string) string {
	switch typ {
	case ErrorTypeTimeout:
		return "request timed out"
	case ErrorTypeCanceled:
		return "request canceled"
	default:
		return "network request failed"
	}
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

// Abort cancels every outstanding call of the named endpoint, reporting how
// many were live. Affected calls resolve as canceled failures.
func (c *Client) Abort(name string) int {
	n := c.cancels.abort(name)
	c.metrics.RecordAbort(name, n)
	if n > 0 && c.debug != nil && c.debug.Enabled && c.logger != nil {
		c.logger.Info("Aborted calls", "endpoint", name, "count", n)
	}
	return n
}

// AbortAll cancels every outstanding call across all endpoints.
func (c *Client) AbortAll() int {
	n := c.cancels.abortAll()
	if n > 0 && c.debug != nil && c.debug.Enabled && c.logger != nil {
		c.logger.Info("Aborted all calls", "count", n)
	}
	return n
}

// Data returns the last successfully extracted payload of the named
// endpoint.
func (c *Client) Data(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.dataStore[name]
	return v, ok
}

// Messages returns the shared last-outcome state. Concurrent calls race to
// overwrite it; per-call return values are authoritative.
func (c *Client) Messages() Messages {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

// ClearMessages resets the shared message state.
func (c *Client) ClearMessages() {
	c.setMessages(Messages{})
}

func (c *Client) setMessages(m Messages) {
	c.mu.Lock()
	c.messages = m
	c.mu.Unlock()
}

func (c *Client) setData(name string, v any) {
	c.mu.Lock()
	c.dataStore[name] = v
	c.mu.Unlock()
}

// InvalidateCache drops every cached response of the named endpoint.
func (c *Client) InvalidateCache(name string) {
	if c.cache == nil {
		return
	}
	c.cache.ClearPattern(name + ":")
	c.metrics.RecordCacheSize("default", c.cache.Len())
}

// ClearCache drops the whole response cache.
func (c *Client) ClearCache() {
	if c.cache == nil {
		return
	}
	c.cache.Clear()
	c.metrics.RecordCacheSize("default", 0)
}

// Stats is a point-in-time snapshot of client activity.
type Stats struct {
	Endpoints      int
	InFlight       int
	ActiveCalls    int
	CacheEntries   int
	LoadingActive  int
	LoadingVisible bool
	ActivePolls    int
}

// Stats reports the client's current activity counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	endpoints := len(c.endpoints)
	c.mu.Unlock()

	active, visible := c.loading.snapshot()
	s := Stats{
		Endpoints:      endpoints,
		InFlight:       c.inflight.pending(),
		ActiveCalls:    c.cancels.active(),
		LoadingActive:  active,
		LoadingVisible: visible,
		ActivePolls:    c.pollers.active(),
	}
	if c.cache != nil {
		s.CacheEntries = c.cache.Len()
	}
	return s
}

// IsValid reports whether construction-time validation passed.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the construction-time validation failure, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}
