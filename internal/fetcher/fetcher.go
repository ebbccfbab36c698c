// Package fetcher retrieves raw availability content from an external
// source. It never interprets the business meaning of what it fetched
// and never retries: retry policy belongs to the sync orchestrator, and
// for scheduled runs the next tick is the retry.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/model"
)

// RawContent is the unparsed payload of one fetch: an HTML document for
// web_scraping sources, a JSON body for api sources.
type RawContent struct {
	Body        []byte
	ContentType string
}

// FetchError covers network failures, timeouts and non-2xx responses.
// Status is zero when no response was received at all.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client performs bounded-timeout HTTP fetches. The timeout lives on
// the underlying http.Client so a hung remote fails the run instead of
// stalling a sync worker.
type Client struct {
	hc        *http.Client
	userAgent string
	maxBody   int64
}

// New constructs a Client from the fetch configuration.
func New(cfg config.FetchConfig) *Client {
	return &Client{
		hc:        &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

// Fetch performs one GET against the source URL and returns the raw
// body. Manual sources have no fetchable URL semantics here; callers
// never pass them in.
func (c *Client) Fetch(ctx context.Context, src *model.ExternalSource) (*RawContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if src.Kind == model.SourceAPI {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: src.URL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	return &RawContent{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
