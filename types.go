package jangkau

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Params carries the named parameters of a call. URL template placeholders
// consume matching keys; the remainder becomes the query string.
type Params map[string]any

// Result is the successful outcome of a call. Data holds the extracted
// payload, Payload the parsed body before extraction, Raw the response bytes.
type Result struct {
	Endpoint  string
	Status    int
	Header    http.Header
	Raw       []byte
	Payload   any
	Data      any
	Message   string
	FromCache bool
	RequestID string
	Duration  time.Duration
}

// Decode unmarshals the extracted payload into v.
func (r *Result) Decode(v any) error {
	if r == nil {
		return &RequestError{Type: ErrorTypeParse, Message: "decode on nil result"}
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return &RequestError{Type: ErrorTypeParse, Message: "encode extracted payload", Cause: err}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &RequestError{Type: ErrorTypeParse, Message: "decode extracted payload", Cause: err}
	}
	return nil
}

// Items returns the extracted payload as a slice, or nil when it is not one.
func (r *Result) Items() []any {
	if r == nil {
		return nil
	}
	items, _ := r.Data.([]any)
	return items
}

// Messages is the shared last-outcome state: the most recently completed
// call's error or success message. Concurrent calls race to overwrite it;
// program logic should rely on each call's own return values instead.
type Messages struct {
	Err     error
	Success string
}

// RequestInfo is handed to the before interceptor, which may mutate Headers
// (and Body for write calls) prior to dispatch.
type RequestInfo struct {
	Endpoint string
	Method   string
	URL      string
	Params   Params
	Body     any
	Headers  http.Header
}

// BeforeInterceptor runs prior to dispatch; returning an error fails the call.
type BeforeInterceptor func(ctx context.Context, info *RequestInfo) error

// AfterInterceptor runs after the body is parsed; its error is swallowed so
// observer hooks can never break the main flow.
type AfterInterceptor func(ctx context.Context, payload any) error

// Middleware wraps the transport, in the order added (first wraps outermost).
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// CacheEntry is a cached normalized response.
type CacheEntry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Cache is the pluggable store behind response caching. Implementations must
// be safe for concurrent use; misses are silent, never errors.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
	// ClearPattern drops every key containing pattern as a substring.
	ClearPattern(pattern string)
	Len() int
}

// CacheMode controls per-endpoint cache participation.
type CacheMode int

const (
	// CacheDefault caches GET and DELETE responses under the request key.
	CacheDefault CacheMode = iota
	// CacheDisabled bypasses the cache entirely for the endpoint.
	CacheDisabled
)

// ParseMode selects how response bodies are decoded.
type ParseMode int

const (
	// ParseAuto decodes JSON and falls back to the raw text on failure.
	ParseAuto ParseMode = iota
	// ParseJSON decodes JSON and fails the call when the body is invalid.
	ParseJSON
	// ParseText returns the body as a string without decoding.
	ParseText
)

// ParseFunc is a caller-supplied body decoder, overriding ParseMode.
type ParseFunc func(body []byte) (any, error)

// Extractor is a caller-supplied payload extractor, overriding the default
// envelope strategies.
type Extractor func(payload any) any

// ExtractStrategy probes one envelope shape; ok reports whether it matched.
// Strategies run in order, first match wins.
type ExtractStrategy func(payload map[string]any) (any, bool)

// Option represents a client configuration option.
type Option func(*Client)
