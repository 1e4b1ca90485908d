package jangkau

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"
)

func pagedServer(t *testing.T, total int, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			t.Errorf("Expected a limit parameter, got %q", r.URL.Query().Get("limit"))
			limit = 1
		}

		var items []any
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, fmt.Sprintf("item-%d", i))
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": items})
		w.Write(body)
	}))
}

func TestGetAllOffsetMode(t *testing.T) {
	var requests atomic.Int32
	server := pagedServer(t, 47, &requests)
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	if _, err := client.Get("listItems", "/items"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	items, err := client.GetAll(context.Background(), "listItems", nil, PaginateConfig{Limit: 20})
	if err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}

	if len(items) != 47 {
		t.Errorf("Expected 47 items, got %d", len(items))
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("Expected 3 page requests, got %d", got)
	}
	if items[0] != "item-0" || items[46] != "item-46" {
		t.Errorf("Items out of order: first=%v last=%v", items[0], items[46])
	}
}

func TestGetAllExactMultiple(t *testing.T) {
	var requests atomic.Int32
	server := pagedServer(t, 40, &requests)
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("listItems", "/items")

	items, err := client.GetAll(context.Background(), "listItems", nil, PaginateConfig{Limit: 20})
	if err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}

	if len(items) != 40 {
		t.Errorf("Expected 40 items, got %d", len(items))
	}
	// A full final page forces one trailing empty-page probe.
	if got := requests.Load(); got != 3 {
		t.Errorf("Expected 3 page requests, got %d", got)
	}
}

func TestGetAllPageMode(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if page < 1 || size <= 0 {
			t.Errorf("Expected page/size parameters, got page=%d size=%d", page, size)
		}

		total := 13
		start := (page - 1) * size
		var items []any
		for i := start; i < total && i < start+size; i++ {
			items = append(items, i)
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": items})
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("listItems", "/items")

	items, err := client.GetAll(context.Background(), "listItems", nil, PaginateConfig{
		Limit:   5,
		PageKey: "page",
	})
	if err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}

	if len(items) != 13 {
		t.Errorf("Expected 13 items, got %d", len(items))
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("Expected 3 page requests, got %d", got)
	}
}

func TestGetAllMaxPagesBound(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items := make([]any, limit)
		for i := range items {
			items[i] = i
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": items})
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("endless", "/endless")

	items, err := client.GetAll(context.Background(), "endless", nil, PaginateConfig{Limit: 10, MaxPages: 3})
	if err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}

	if got := requests.Load(); got != 3 {
		t.Errorf("Expected the MaxPages bound to stop the loop, got %d requests", got)
	}
	if len(items) != 30 {
		t.Errorf("Expected 30 items, got %d", len(items))
	}
}

func TestGetAllFailedPageFailsWhole(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if n == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"page unavailable"}`))
			return
		}
		items := make([]any, 10)
		for i := range items {
			items[i] = i
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": items})
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("listItems", "/items")

	items, err := client.GetAll(context.Background(), "listItems", nil, PaginateConfig{Limit: 10})
	if err == nil {
		t.Fatal("Expected a failed page to fail the operation")
	}
	if items != nil {
		t.Errorf("Failed pagination should return no items, got %d", len(items))
	}
}

func TestGetAllPreservesCallerParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "active" {
			t.Errorf("Expected caller param on every page, got %q", got)
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": []any{1}})
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("listItems", "/items")

	params := Params{"status": "active"}
	if _, err := client.GetAll(context.Background(), "listItems", params, PaginateConfig{Limit: 5}); err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}
	if len(params) != 1 {
		t.Errorf("GetAll should not mutate caller params, got %v", params)
	}
}

func TestGetCursor(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var resp map[string]any
		switch r.URL.Query().Get("cursor") {
		case "":
			resp = map[string]any{"success": true, "data": []any{"a", "b"}, "next_cursor": "c1"}
		case "c1":
			resp = map[string]any{"success": true, "data": []any{"c", "d"}, "next_cursor": "c2"}
		case "c2":
			resp = map[string]any{"success": true, "data": []any{"e"}}
		default:
			t.Errorf("Unexpected cursor %q", r.URL.Query().Get("cursor"))
			resp = map[string]any{"success": true, "data": []any{}}
		}
		body, _ := json.Marshal(resp)
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("feed", "/feed")

	items, err := client.GetCursor(context.Background(), "feed", nil, CursorConfig{})
	if err != nil {
		t.Fatalf("GetCursor() error: %v", err)
	}

	if len(items) != 5 {
		t.Errorf("Expected 5 items, got %d", len(items))
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("Expected 3 cursor requests, got %d", got)
	}
	if items[0] != "a" || items[4] != "e" {
		t.Errorf("Items out of order: %v", items)
	}
}

func TestGetCursorStopsOnEmptyPage(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// A cursor with no items must still terminate the loop.
		body, _ := json.Marshal(map[string]any{"success": true, "data": []any{}, "next_cursor": "more"})
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("feed", "/feed")

	items, err := client.GetCursor(context.Background(), "feed", nil, CursorConfig{})
	if err != nil {
		t.Fatalf("GetCursor() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("Expected a single request, got %d", got)
	}
}

func TestGetCursorNestedCursorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp map[string]any
		if r.URL.Query().Get("cursor") == "" {
			resp = map[string]any{
				"success":    true,
				"data":       []any{"a"},
				"pagination": map[string]any{"next_cursor": "p2"},
			}
		} else {
			resp = map[string]any{"success": true, "data": []any{"b"}}
		}
		body, _ := json.Marshal(resp)
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("feed", "/feed")

	items, err := client.GetCursor(context.Background(), "feed", nil, CursorConfig{})
	if err != nil {
		t.Fatalf("GetCursor() error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected nested cursor to be followed, got %d items", len(items))
	}
}

func TestGetCursorCustomNext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp map[string]any
		if r.URL.Query().Get("after") == "" {
			resp = map[string]any{"success": true, "data": []any{"a"}, "paging": map[string]any{"after": "x1"}}
		} else {
			resp = map[string]any{"success": true, "data": []any{"b"}}
		}
		body, _ := json.Marshal(resp)
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("feed", "/feed")

	items, err := client.GetCursor(context.Background(), "feed", nil, CursorConfig{
		CursorKey: "after",
		Next: func(res *Result) (string, bool) {
			obj, ok := res.Payload.(map[string]any)
			if !ok {
				return "", false
			}
			paging, ok := obj["paging"].(map[string]any)
			if !ok {
				return "", false
			}
			s, ok := paging["after"].(string)
			return s, ok
		},
	})
	if err != nil {
		t.Fatalf("GetCursor() error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected custom cursor to be followed, got %d items", len(items))
	}
}

func TestGetCursorSendsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("Expected limit=25, got %q", got)
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": []any{}})
		w.Write(body)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	client.Get("feed", "/feed")

	if _, err := client.GetCursor(context.Background(), "feed", nil, CursorConfig{Limit: 25}); err != nil {
		t.Fatalf("GetCursor() error: %v", err)
	}
}
