package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"edudash/internal/config"
)

func fastRetry() *config.RetryPolicy {
	return &config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    1,
		MaxDelayMs:        5,
		BackoffMultiplier: 1.0,
		TimeoutSec:        5,
	}
}

func TestScraper_FetchRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q", r.Header.Get("Accept"))
		}

		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, status, _, err := NewScraperWithConfig(fastRetry()).FetchWithMetrics(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchWithMetrics failed: %v", err)
	}

	if status != http.StatusOK || string(body) != `{"ok":true}` {
		t.Errorf("status = %d, body = %s", status, body)
	}

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestScraper_FetchStopsOnPermanentStatus(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewScraperWithConfig(fastRetry()).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Fatalf("err = %v, want ErrUnexpectedStatusCode", err)
	}

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestScraper_FetchTooLarge(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		size := 1024
		if r.URL.Path == "/large.json" {
			size++
		}

		w.Write([]byte(strings.Repeat(" ", size)))
	}))
	defer srv.Close()

	policy := fastRetry()
	policy.BufferSizeKb = 1
	s := NewScraperWithConfig(policy)

	body, err := s.Fetch(context.Background(), srv.URL+"/exact.json")
	if err != nil || len(body) != 1024 {
		t.Fatalf("Fetch at the limit = %d bytes, %v; want 1024, nil", len(body), err)
	}

	if _, err := s.Fetch(context.Background(), srv.URL+"/large.json"); !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("Fetch over the limit err = %v, want ErrDocumentTooLarge", err)
	}

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestScraper_FetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	s := NewScraper()

	body, err := s.Fetch(context.Background(), path)
	if err != nil || string(body) != "{}" {
		t.Errorf("Fetch local = %s, %v", body, err)
	}

	if _, err := s.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Fetch of missing file succeeded, want error")
	}
}

func TestScraper_FetchCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := fastRetry()
	policy.InitialDelayMs = 1000
	policy.BackoffMultiplier = 2.0
	policy.MaxDelayMs = 1000

	if _, err := NewScraperWithConfig(policy).Fetch(ctx, srv.URL); err == nil {
		t.Error("Fetch with canceled context succeeded, want error")
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("https://example.com/a.json") || IsRemote("assets/config/metadata.json") {
		t.Error("IsRemote mismatch")
	}
}
