package jangkau

import (
	"errors"
	"fmt"
	"time"
)

// Error type identifiers carried by RequestError.Type.
const (
	// ErrorTypeNetwork marks transport failures: connection refused, DNS,
	// aborted sockets, anything where no usable response arrived.
	ErrorTypeNetwork = "Network"

	// ErrorTypeHTTP marks responses with a non-OK status code.
	ErrorTypeHTTP = "HTTP"

	// ErrorTypeApplication marks OK responses whose payload signals failure
	// (error field, success:false, non-success code, and so on).
	ErrorTypeApplication = "Application"

	// ErrorTypeParse marks bodies that could not be decoded when a strict
	// parse mode was requested.
	ErrorTypeParse = "Parse"

	// ErrorTypeTimeout marks calls cancelled by the per-request deadline.
	ErrorTypeTimeout = "Timeout"

	// ErrorTypeCanceled marks calls aborted explicitly (Abort/AbortAll or a
	// cancelled caller context).
	ErrorTypeCanceled = "Canceled"

	// ErrorTypeRateLimit marks calls rejected by the client-side limiter.
	ErrorTypeRateLimit = "RateLimit"

	// ErrorTypeCircuitOpen marks calls rejected while the breaker is open.
	ErrorTypeCircuitOpen = "CircuitOpen"

	// ErrorTypeInterceptor marks calls failed by a before interceptor.
	ErrorTypeInterceptor = "Interceptor"

	// ErrorTypeValidation marks invalid client configuration.
	ErrorTypeValidation = "Validation"

	// ErrorTypeRegistry marks endpoint registration and lookup failures.
	ErrorTypeRegistry = "Registry"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrEndpointRegistered is returned when a name is registered twice;
	// endpoint definitions are write-once.
	ErrEndpointRegistered = errors.New("jangkau: endpoint already registered")

	// ErrEndpointUnknown is returned when a call names an endpoint that was
	// never registered.
	ErrEndpointUnknown = errors.New("jangkau: unknown endpoint")

	// ErrRateLimited is returned when a request is denied by the limiter.
	ErrRateLimited = errors.New("jangkau: rate limited")

	// ErrCircuitOpen is returned while the circuit breaker is open.
	ErrCircuitOpen = errors.New("jangkau: circuit open")
)

// RequestError is the failure value produced by the request engine. Callables
// never panic on failure; they return nil along with one of these.
type RequestError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Endpoint   string
	Method     string
	URL        string
	StatusCode int
	Attempt    int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s endpoint=%s", msg, e.Endpoint)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *RequestError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*RequestError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *RequestError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d\n", e.Attempt)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsTransient reports whether an error represents a failure that might
// succeed on retry. Network faults, timeouts, 5xx responses, limiter and
// breaker rejections qualify; application-level rejections, parse failures,
// deliberate cancellations and other 4xx responses do not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCircuitOpen) {
		return true
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Type {
		case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeCircuitOpen:
			return true
		case ErrorTypeHTTP:
			return reqErr.StatusCode == 429 || reqErr.StatusCode >= 500
		default:
			return false
		}
	}

	return false
}
