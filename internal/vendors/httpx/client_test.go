package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{MaxRetries: 3})
	body, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such thing", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Options{MaxRetries: 3})
	if _, err := c.Get(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("404 did not error")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 (no retries on 4xx)", hits.Load())
	}
}

func TestGetServesFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	c := New(Options{CacheEnabled: true, CacheTTL: time.Minute})
	var out struct {
		Value int `json:"value"`
	}
	for i := 0; i < 3; i++ {
		if err := c.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
			t.Fatalf("GetJSON: %v", err)
		}
	}
	if out.Value != 42 {
		t.Errorf("value = %d", out.Value)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 (cache misses)", hits.Load())
	}
}

func TestGetCacheKeyIncludesHeaders(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	c := New(Options{CacheEnabled: true, CacheTTL: time.Minute})
	a, err := c.Get(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer one"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Get(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer two"})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) == string(b) {
		t.Error("different headers shared a cache entry")
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}
