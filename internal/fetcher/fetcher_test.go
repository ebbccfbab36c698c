package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/model"
)

func testClient(timeout time.Duration, maxBody int64) *Client {
	return New(config.FetchConfig{
		Timeout:      timeout,
		UserAgent:    "circuit-sync-test/1.0",
		MaxBodyBytes: maxBody,
	})
}

func TestFetchSuccess(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"seats_left":4}`))
	}))
	defer srv.Close()

	c := testClient(5*time.Second, 1<<20)
	raw, err := c.Fetch(context.Background(), &model.ExternalSource{Kind: model.SourceAPI, URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(raw.Body) != `{"seats_left":4}` {
		t.Fatalf("body: %q", raw.Body)
	}
	if raw.ContentType != "application/json" {
		t.Fatalf("content type: %q", raw.ContentType)
	}
	if gotUA != "circuit-sync-test/1.0" {
		t.Fatalf("user agent: %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Fatalf("api source should ask for JSON, got %q", gotAccept)
	}
}

func TestFetchWebSourceSendsNoAcceptHeader(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := testClient(5*time.Second, 1<<20)
	if _, err := c.Fetch(context.Background(), &model.ExternalSource{Kind: model.SourceWebScraping, URL: srv.URL}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAccept == "application/json" {
		t.Fatalf("web source should not force a JSON accept header")
	}
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(5*time.Second, 1<<20)
	_, err := c.Fetch(context.Background(), &model.ExternalSource{URL: srv.URL})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want FetchError, got %v", err)
	}
	if fe.Status != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", fe.Status)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(50*time.Millisecond, 1<<20)
	_, err := c.Fetch(context.Background(), &model.ExternalSource{URL: srv.URL})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want FetchError, got %v", err)
	}
	if fe.Status != 0 {
		t.Fatalf("timeout should carry no status, got %d", fe.Status)
	}
}

func TestFetchBodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	c := testClient(5*time.Second, 1024)
	raw, err := c.Fetch(context.Background(), &model.ExternalSource{URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(raw.Body) != 1024 {
		t.Fatalf("body not capped: %d bytes", len(raw.Body))
	}
}
