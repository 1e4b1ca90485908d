package jangkau

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestEndpointRegistration(t *testing.T) {
	client := New()

	getUser, err := client.Get("getUser", "/users/:id")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if getUser == nil {
		t.Fatal("Get() returned nil callable")
	}

	ep, ok := client.endpoint("getUser")
	if !ok {
		t.Fatal("Endpoint not stored")
	}
	if ep.Name() != "getUser" {
		t.Errorf("Expected name 'getUser', got %q", ep.Name())
	}
	if ep.Method() != http.MethodGet {
		t.Errorf("Expected method GET, got %q", ep.Method())
	}
	if !ep.dedupe {
		t.Error("GET endpoints should dedupe by default")
	}
}

func TestWriteRegistrationDefaults(t *testing.T) {
	client := New()

	if _, err := client.Post("createUser", "/users"); err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	ep, _ := client.endpoint("createUser")
	if ep.Method() != http.MethodPost {
		t.Errorf("Expected method POST, got %q", ep.Method())
	}
	if ep.dedupe {
		t.Error("Write endpoints should not dedupe by default")
	}
}

func TestDuplicateRegistration(t *testing.T) {
	client := New()

	if _, err := client.Get("getUser", "/users/:id"); err != nil {
		t.Fatalf("First registration error: %v", err)
	}

	_, err := client.Post("getUser", "/users")
	if err == nil {
		t.Fatal("Expected duplicate registration to fail")
	}
	if !errors.Is(err, ErrEndpointRegistered) {
		t.Errorf("Expected ErrEndpointRegistered cause, got %v", err)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if reqErr.Type != ErrorTypeRegistry {
		t.Errorf("Expected Registry type, got %s", reqErr.Type)
	}
}

func TestCallUnknownEndpoint(t *testing.T) {
	client := New()

	_, err := client.Call(context.Background(), "missing", nil)
	if err == nil {
		t.Fatal("Expected error for unknown endpoint")
	}
	if !errors.Is(err, ErrEndpointUnknown) {
		t.Errorf("Expected ErrEndpointUnknown cause, got %v", err)
	}
}

func TestGetResolvesTemplateAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/users/42" {
			t.Errorf("Expected path /users/42, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("expand"); got != "profile" {
			t.Errorf("Expected expand=profile, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":42,"name":"Ayu"}}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	getUser, err := client.Get("getUser", "/users/:id")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	res, err := getUser(context.Background(), Params{"id": 42, "expand": "profile"})
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", res.Status)
	}
	if res.FromCache {
		t.Error("First call should not come from cache")
	}

	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected map data, got %T", res.Data)
	}
	if data["name"] != "Ayu" {
		t.Errorf("Expected name 'Ayu', got %v", data["name"])
	}
}

func TestAbsoluteTemplateIgnoresBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(WithBaseURL("https://unreachable.invalid"))
	ping, err := client.Get("ping", server.URL+"/ping")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if _, err := ping(context.Background(), nil); err != nil {
		t.Fatalf("Absolute template should bypass baseURL, got %v", err)
	}
}

func TestPostEncodesJSONBody(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Expected JSON content type, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Expected Accept header, got %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &received); err != nil {
			t.Errorf("Body did not decode: %v", err)
		}
		w.Write([]byte(`{"success":true,"data":{"id":1}}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	createUser, err := client.Post("createUser", "/users")
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	if _, err := createUser(context.Background(), map[string]any{"name": "Ayu"}, nil); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if received["name"] != "Ayu" {
		t.Errorf("Expected body name 'Ayu', got %v", received["name"])
	}
}

func TestPostEncodesFormBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("Expected form content type, got %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostFormValue("name"); got != "Ayu" {
			t.Errorf("Expected form name 'Ayu', got %q", got)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	login, err := client.Post("login", "/login")
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	form := url.Values{"name": {"Ayu"}, "role": {"admin"}}
	if _, err := login(context.Background(), form, nil); err != nil {
		t.Fatalf("Call error: %v", err)
	}
}

func TestPostPassthroughBodies(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"string", "plain text payload"},
		{"bytes", []byte("plain text payload")},
		{"reader", strings.NewReader("plain text payload")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Content-Type"); got != "" {
					t.Errorf("Passthrough bodies should not set Content-Type, got %q", got)
				}
				raw, _ := io.ReadAll(r.Body)
				if string(raw) != "plain text payload" {
					t.Errorf("Expected raw body passthrough, got %q", raw)
				}
				w.Write([]byte(`{"success":true}`))
			}))
			defer server.Close()

			client := New(WithBaseURL(server.URL))
			send, err := client.Post("send", "/send")
			if err != nil {
				t.Fatalf("Post() error: %v", err)
			}
			if _, err := send(context.Background(), tt.body, nil); err != nil {
				t.Fatalf("Call error: %v", err)
			}
		})
	}
}

func TestHeaderLayering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Default"); got != "base" {
			t.Errorf("Expected default header, got %q", got)
		}
		if got := r.Header.Get("X-Endpoint"); got != "ep" {
			t.Errorf("Expected endpoint header, got %q", got)
		}
		if got := r.Header.Get("X-Call"); got != "call" {
			t.Errorf("Expected call header, got %q", got)
		}
		if got := r.Header.Get("X-Tier"); got != "pro" {
			t.Errorf("Endpoint header should override default, got %q", got)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithDefaultHeader("X-Default", "base"),
		WithDefaultHeader("X-Tier", "free"),
	)
	fetch, err := client.Get("fetch", "/fetch", Header("X-Endpoint", "ep"), Header("X-Tier", "pro"))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if _, err := fetch(context.Background(), nil, CallHeader("X-Call", "call")); err != nil {
		t.Fatalf("Call error: %v", err)
	}
}

func TestRawEndpointSkipsExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"id":7}}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	fetch, err := client.Get("fetch", "/fetch", Raw())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	res, err := fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}

	want := map[string]any{"success": true, "data": map[string]any{"id": float64(7)}}
	if !reflect.DeepEqual(res.Data, want) {
		t.Errorf("Expected full envelope %v, got %v", want, res.Data)
	}
}

func TestCustomExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payload":{"inner":"value"}}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	fetch, err := client.Get("fetch", "/fetch", Extract(func(payload any) any {
		if m, ok := payload.(map[string]any); ok {
			return m["payload"]
		}
		return payload
	}))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	res, err := fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["inner"] != "value" {
		t.Errorf("Expected extractor output, got %v", res.Data)
	}
}

func TestParseTextEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"looks":"like json"}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	fetch, err := client.Get("fetch", "/fetch", Parse(ParseText))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	res, err := fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if res.Data != `{"looks":"like json"}` {
		t.Errorf("ParseText should keep the body as a string, got %v", res.Data)
	}
}

func TestEndpointsSorted(t *testing.T) {
	client := New()
	client.Get("charlie", "/c")
	client.Get("alpha", "/a")
	client.Get("bravo", "/b")

	got := client.Endpoints()
	want := []string{"alpha", "bravo", "charlie"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
