package jangkau

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Endpoint is a registered named operation: an HTTP method, a URL template
// with :param placeholders and the behavior knobs applied to every call.
type Endpoint struct {
	client   *Client
	name     string
	method   string
	template string

	cacheMode CacheMode
	cacheTTL  time.Duration
	cacheKey  string
	swr       bool
	dedupe    bool

	parseMode ParseMode
	parseFunc ParseFunc
	extractor Extractor
	raw       bool

	timeout time.Duration
	headers http.Header
}

// Name returns the endpoint's registered name.
func (ep *Endpoint) Name() string { return ep.name }

// Method returns the endpoint's HTTP method.
func (ep *Endpoint) Method() string { return ep.method }

// EndpointOption configures a single endpoint at registration time.
type EndpointOption func(*Endpoint)

// NoCache opts the endpoint out of response caching
func NoCache() EndpointOption {
	return func(ep *Endpoint) {
		ep.cacheMode = CacheDisabled
	}
}

// CacheTTL overrides the client cache TTL for this endpoint
func CacheTTL(ttl time.Duration) EndpointOption {
	return func(ep *Endpoint) {
		ep.cacheTTL = ttl
	}
}

// CacheKey pins the endpoint to a fixed cache key regardless of params
func CacheKey(key string) EndpointOption {
	return func(ep *Endpoint) {
		ep.cacheKey = key
	}
}

// StaleWhileRevalidate serves cache hits immediately and refreshes the
// entry in the background
func StaleWhileRevalidate() EndpointOption {
	return func(ep *Endpoint) {
		ep.swr = true
	}
}

// Dedupe opts the endpoint into in-flight call sharing
func Dedupe() EndpointOption {
	return func(ep *Endpoint) {
		ep.dedupe = true
	}
}

// NoDedupe opts the endpoint out of in-flight call sharing
func NoDedupe() EndpointOption {
	return func(ep *Endpoint) {
		ep.dedupe = false
	}
}

// Parse sets the response parse mode
func Parse(mode ParseMode) EndpointOption {
	return func(ep *Endpoint) {
		ep.parseMode = mode
	}
}

// ParseWith sets a custom response parser, overriding the parse mode
func ParseWith(fn ParseFunc) EndpointOption {
	return func(ep *Endpoint) {
		ep.parseFunc = fn
	}
}

// Extract sets a custom payload extractor for this endpoint
func Extract(fn Extractor) EndpointOption {
	return func(ep *Endpoint) {
		ep.extractor = fn
	}
}

// Raw disables envelope extraction; Data carries the parsed payload as-is
func Raw() EndpointOption {
	return func(ep *Endpoint) {
		ep.raw = true
	}
}

// Timeout overrides the client timeout for this endpoint
func Timeout(d time.Duration) EndpointOption {
	return func(ep *Endpoint) {
		ep.timeout = d
	}
}

// Header adds a header sent with every call to this endpoint
func Header(key, value string) EndpointOption {
	return func(ep *Endpoint) {
		if ep.headers == nil {
			ep.headers = http.Header{}
		}
		ep.headers.Add(key, value)
	}
}

// callOptions are the per-invocation overrides.
type callOptions struct {
	noCache    bool
	refresh    bool
	background bool
	timeout    time.Duration
	headers    http.Header
}

// CallOption tunes a single invocation of a callable.
type CallOption func(*callOptions)

// CallNoCache skips the cache entirely for this invocation
func CallNoCache() CallOption {
	return func(co *callOptions) {
		co.noCache = true
	}
}

// CallRefresh skips the cache read but still stores the fresh response
func CallRefresh() CallOption {
	return func(co *callOptions) {
		co.refresh = true
	}
}

// CallTimeout overrides the timeout for this invocation
func CallTimeout(d time.Duration) CallOption {
	return func(co *callOptions) {
		co.timeout = d
	}
}

// CallHeader adds a header to this invocation
func CallHeader(key, value string) CallOption {
	return func(co *callOptions) {
		if co.headers == nil {
			co.headers = http.Header{}
		}
		co.headers.Add(key, value)
	}
}

func applyCallOptions(opts []CallOption) callOptions {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	return co
}

// GetFunc is the callable returned for body-less endpoints.
type GetFunc func(ctx context.Context, params Params, opts ...CallOption) (*Result, error)

// WriteFunc is the callable returned for endpoints that send a body.
type WriteFunc func(ctx context.Context, body any, params Params, opts ...CallOption) (*Result, error)

// Get registers a GET endpoint and returns its callable.
func (c *Client) Get(name, template string, opts ...EndpointOption) (GetFunc, error) {
	ep, err := c.register(name, http.MethodGet, template, opts)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, params Params, callOpts ...CallOption) (*Result, error) {
		return c.execute(ctx, ep, nil, params, callOpts)
	}, nil
}

// Del registers a DELETE endpoint and returns its callable.
func (c *Client) Del(name, template string, opts ...EndpointOption) (GetFunc, error) {
	ep, err := c.register(name, http.MethodDelete, template, opts)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, params Params, callOpts ...CallOption) (*Result, error) {
		return c.execute(ctx, ep, nil, params, callOpts)
	}, nil
}

// Post registers a POST endpoint and returns its callable.
func (c *Client) Post(name, template string, opts ...EndpointOption) (WriteFunc, error) {
	return c.registerWrite(name, http.MethodPost, template, opts)
}

// Put registers a PUT endpoint and returns its callable.
func (c *Client) Put(name, template string, opts ...EndpointOption) (WriteFunc, error) {
	return c.registerWrite(name, http.MethodPut, template, opts)
}

// Patch registers a PATCH endpoint and returns its callable.
func (c *Client) Patch(name, template string, opts ...EndpointOption) (WriteFunc, error) {
	return c.registerWrite(name, http.MethodPatch, template, opts)
}

func (c *Client) registerWrite(name, method, template string, opts []EndpointOption) (WriteFunc, error) {
	ep, err := c.register(name, method, template, opts)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, body any, params Params, callOpts ...CallOption) (*Result, error) {
		return c.execute(ctx, ep, body, params, callOpts)
	}, nil
}

// register creates and stores an endpoint. Names are write-once; a second
// registration under the same name is rejected.
func (c *Client) register(name, method, template string, opts []EndpointOption) (*Endpoint, error) {
	ep := &Endpoint{
		client:   c,
		name:     name,
		method:   method,
		template: template,
		dedupe:   c.dedupeReads && isReadMethod(method),
	}
	for _, opt := range opts {
		opt(ep)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.endpoints[name]; exists {
		return nil, &RequestError{
			Type:      ErrorTypeRegistry,
			Message:   fmt.Sprintf("endpoint %q already registered", name),
			Cause:     ErrEndpointRegistered,
			Endpoint:  name,
			Method:    method,
			Timestamp: time.Now(),
		}
	}
	c.endpoints[name] = ep
	return ep, nil
}

// endpoint looks up a registered endpoint by name.
func (c *Client) endpoint(name string) (*Endpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep, ok := c.endpoints[name]
	return ep, ok
}

// Endpoints returns the registered endpoint names in sorted order.
func (c *Client) Endpoints() []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	c.mu.Unlock()

	sort.Strings(names)
	return names
}
