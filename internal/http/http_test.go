package http_test

import (
	"context"
	"encoding/json"
	"errors"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alan-mat/drugrag/internal/http"
)

func TestClientRequest(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if r.URL.Path != "/v1/items" {
			t.Errorf("unexpected path '%s'", r.URL.Path)
		}
		if got := r.Header.Get("Api-Key"); got != "secret" {
			t.Errorf("expected Api-Key header 'secret', got '%s'", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got '%s'", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if payload["name"] != "drug-safety-index" {
			t.Errorf("unexpected payload %v", payload)
		}
		w.Write([]byte(`{"count": 3}`))
	}))
	defer srv.Close()

	c := http.NewClient(srv.URL, http.WithHeader("Api-Key", "secret"))

	var out struct {
		Count int `json:"count"`
	}
	err := c.Request(context.Background(), http.MethodPost, "/v1/items", map[string]any{"name": "drug-safety-index"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("expected count 3, got %d", out.Count)
	}
}

func TestClientBearerKey(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("expected bearer auth, got '%s'", got)
		}
		if r.Body != nil {
			buf := make([]byte, 1)
			if n, _ := r.Body.Read(buf); n != 0 {
				t.Error("expected empty body for GET request")
			}
		}
		w.WriteHeader(gohttp.StatusNoContent)
	}))
	defer srv.Close()

	c := http.NewClient(srv.URL, http.WithApiKey("key-1"))
	if err := c.Request(context.Background(), gohttp.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientErrorStatus(t *testing.T) {
	long := strings.Repeat("x", 2000)
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusUnauthorized)
		w.Write([]byte(long))
	}))
	defer srv.Close()

	c := http.NewClient(srv.URL)
	err := c.Request(context.Background(), gohttp.MethodGet, "/indexes", nil, nil)

	var statusErr http.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != gohttp.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", statusErr.StatusCode)
	}
	if len(statusErr.Body) != 512 {
		t.Errorf("expected error body truncated to 512 bytes, got %d", len(statusErr.Body))
	}
}

func TestClientRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(gohttp.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := http.NewClient(srv.URL, http.WithMaxRetries(3), http.WithRetryDelay(time.Millisecond))
	if err := c.Request(context.Background(), http.MethodPost, "/x", map[string]any{"a": 1}, &map[string]any{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestClientNoRetryByDefault(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		calls++
		w.WriteHeader(gohttp.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := http.NewClient(srv.URL)
	err := c.Request(context.Background(), gohttp.MethodGet, "/x", nil, nil)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}
