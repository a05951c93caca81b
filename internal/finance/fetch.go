package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHosts are tried in order on every attempt.
var DefaultHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Hosts   []string
	Retries int
	Backoff time.Duration
	Timeout time.Duration
	Proxy   string
	// Quotes enriches profiles; nil disables the quote snapshot.
	Quotes QuoteSource
}

// Client talks to the Yahoo Finance chart and quoteSummary endpoints.
type Client struct {
	http    *http.Client
	hosts   []string
	retries int
	backoff time.Duration
	quotes  QuoteSource
}

func NewClient(opts Options) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	hosts := opts.Hosts
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: transport},
		hosts:   hosts,
		retries: retries,
		backoff: opts.Backoff,
		quotes:  opts.Quotes,
	}
}

// finalError marks a response that retrying cannot fix (unknown symbol, bad request).
type finalError struct{ err error }

func (e *finalError) Error() string { return e.err.Error() }
func (e *finalError) Unwrap() error { return e.err }

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// getJSON fetches path from each host in turn, retrying with a growing
// backoff on network errors, 429 and 5xx responses, and decodes the JSON body
// into out.
func (c *Client) getJSON(ctx context.Context, symbol, path string, query url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(attempt)
			log.Printf("finance: retrying %s in %s (attempt %d): %v", symbol, wait, attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		for _, host := range c.hosts {
			err := c.getOnce(ctx, host, symbol, path, query, out)
			if err == nil {
				return nil
			}
			var fe *finalError
			if errors.As(err, &fe) {
				return fe.err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, host, symbol, path string, query url.Values, out any) error {
	u := strings.TrimRight(host, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &finalError{err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", symbol))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", host)
	case resp.StatusCode == http.StatusNotFound:
		return &finalError{fmt.Errorf("yahoo: %s", describeError(body, "symbol not found"))}
	case resp.StatusCode >= 500:
		return fmt.Errorf("yahoo %s returned %d: %s", host, resp.StatusCode, preview(body))
	case resp.StatusCode != http.StatusOK:
		return &finalError{fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, describeError(body, preview(body)))}
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	return nil
}

// describeError pulls the description out of {"chart": {"error": {...}}} style
// envelopes, whatever the top-level key is.
func describeError(body []byte, fallback string) string {
	var env map[string]struct {
		Error *yahooError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fallback
	}
	for _, v := range env {
		if v.Error != nil && v.Error.Description != "" {
			return v.Error.Description
		}
	}
	return fallback
}
