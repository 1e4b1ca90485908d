package jangkau

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRequestErrorError(t *testing.T) {
	err := &RequestError{
		Type:    ErrorTypeHTTP,
		Message: "server error",
	}
	if got := err.Error(); got != "HTTP: server error" {
		t.Errorf("Expected 'HTTP: server error', got %q", got)
	}

	err = &RequestError{
		Type:      ErrorTypeNetwork,
		Message:   "connection refused",
		Cause:     errors.New("dial tcp"),
		RequestID: "req-1",
		Endpoint:  "getUser",
	}
	got := err.Error()
	for _, part := range []string{"req-1", "Network", "connection refused", "dial tcp", "endpoint=getUser"} {
		if !strings.Contains(got, part) {
			t.Errorf("Expected %q in %q", part, got)
		}
	}
}

func TestRequestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &RequestError{Type: ErrorTypeParse, Message: "bad body", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	var reqErr *RequestError
	if !errors.As(wrapped, &reqErr) {
		t.Fatal("errors.As should find the RequestError")
	}
	if reqErr.Type != ErrorTypeParse {
		t.Errorf("Expected Parse type, got %s", reqErr.Type)
	}
}

func TestRequestErrorIsMatchesType(t *testing.T) {
	err := &RequestError{Type: ErrorTypeTimeout, Message: "deadline"}

	if !errors.Is(err, &RequestError{Type: ErrorTypeTimeout}) {
		t.Error("Errors of the same type should match")
	}
	if errors.Is(err, &RequestError{Type: ErrorTypeNetwork}) {
		t.Error("Errors of different types should not match")
	}
}

func TestSentinelCauses(t *testing.T) {
	err := &RequestError{
		Type:    ErrorTypeRateLimit,
		Message: "rate limit exceeded",
		Cause:   ErrRateLimited,
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("Rate limit error should match its sentinel")
	}

	err = &RequestError{
		Type:  ErrorTypeRegistry,
		Cause: ErrEndpointRegistered,
	}
	if !errors.Is(err, ErrEndpointRegistered) {
		t.Error("Registry error should match its sentinel")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &RequestError{Type: ErrorTypeNetwork}, true},
		{"timeout", &RequestError{Type: ErrorTypeTimeout}, true},
		{"rate limit", &RequestError{Type: ErrorTypeRateLimit}, true},
		{"circuit open", &RequestError{Type: ErrorTypeCircuitOpen}, true},
		{"http 500", &RequestError{Type: ErrorTypeHTTP, StatusCode: 500}, true},
		{"http 503", &RequestError{Type: ErrorTypeHTTP, StatusCode: 503}, true},
		{"http 429", &RequestError{Type: ErrorTypeHTTP, StatusCode: 429}, true},
		{"http 404", &RequestError{Type: ErrorTypeHTTP, StatusCode: 404}, false},
		{"http 400", &RequestError{Type: ErrorTypeHTTP, StatusCode: 400}, false},
		{"application", &RequestError{Type: ErrorTypeApplication}, false},
		{"parse", &RequestError{Type: ErrorTypeParse}, false},
		{"canceled", &RequestError{Type: ErrorTypeCanceled}, false},
		{"validation", &RequestError{Type: ErrorTypeValidation}, false},
		{"bare sentinel", ErrRateLimited, true},
		{"plain error", errors.New("whatever"), false},
		{"wrapped transient", fmt.Errorf("outer: %w", &RequestError{Type: ErrorTypeNetwork}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDebugInfo(t *testing.T) {
	err := &RequestError{
		Type:       ErrorTypeHTTP,
		Message:    "server error",
		RequestID:  "req-9",
		Endpoint:   "getUser",
		Method:     "GET",
		URL:        "https://api.example.com/users/1",
		StatusCode: 502,
		Attempt:    2,
		Timestamp:  time.Now(),
		Duration:   120 * time.Millisecond,
		Cause:      errors.New("bad gateway"),
	}

	info := err.DebugInfo()
	for _, part := range []string{
		"Error Type: HTTP",
		"Message: server error",
		"Request ID: req-9",
		"Endpoint: getUser",
		"Method: GET",
		"Status Code: 502",
		"Attempt: 2",
		"Cause: bad gateway",
	} {
		if !strings.Contains(info, part) {
			t.Errorf("Expected %q in debug info:\n%s", part, info)
		}
	}
}
