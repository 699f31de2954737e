// Package httpclient wraps net/http with header profiles that keep news
// sites from rejecting automated fetches.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Profile selects the header set applied to outgoing requests.
type Profile string

const (
	// Browser sends browser-like headers; most publishers answer 403/406 otherwise.
	Browser Profile = "browser"
	// Plain sends a curl-style user agent for hosts that block browser agents.
	Plain Profile = "plain"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxRedirects     = 10
	defaultTimeout   = 20 * time.Second
	// MaxBodyBytes caps how much of a page is read.
	MaxBodyBytes = 8 << 20
)

// Client issues GET requests with a header profile.
type Client struct {
	client  *http.Client
	profile Profile
}

// New creates a client for the profile. A nil base uses a client with a
// 20 second timeout.
func New(profile Profile, base *http.Client) *Client {
	if base == nil {
		base = &http.Client{Timeout: defaultTimeout}
	}
	clone := *base
	clone.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return &Client{client: &clone, profile: profile}
}

// HTTPClient exposes the underlying client for libraries that accept one.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// UserAgent returns the agent string the profile sends.
func (c *Client) UserAgent() string {
	if c.profile == Plain {
		return "curl/8.7.1"
	}
	return browserUserAgent
}

// Do executes req after applying the profile headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Fetch GETs rawURL and returns at most MaxBodyBytes of a 2xx body.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: http %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	switch c.profile {
	case Plain:
		req.Header.Set("User-Agent", c.UserAgent())
	default:
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
	}
}
