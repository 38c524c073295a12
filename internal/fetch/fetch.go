// Package fetch downloads remote media after the SSRF safety check. The
// check is applied to the initial URL and to every redirect hop, so a vetted
// public URL cannot bounce the client onto an internal address.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dream-anchor/creatoros-reels/internal/urlcheck"
)

const (
	// DefaultMaxBytes bounds how much media we are willing to pull into
	// memory for a single stage call.
	DefaultMaxBytes = int64(512 << 20)

	requestTimeout = 2 * time.Minute
	maxRedirects   = 10
)

// Client downloads externally supplied media URLs.
type Client struct {
	http     *http.Client
	validate func(string) error
}

func New() *Client {
	c := &Client{validate: urlcheck.ValidateFetchURL}
	c.http = &http.Client{
		Timeout:       requestTimeout,
		CheckRedirect: c.checkRedirect,
	}
	return c
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return c.validate(req.URL.String())
}

// Fetch validates rawURL with the SSRF guard, downloads it and returns the
// body. Responses larger than maxBytes (or DefaultMaxBytes when maxBytes
// is <= 0) are rejected rather than truncated.
func (c *Client) Fetch(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	if err := c.validate(rawURL); err != nil {
		return nil, err
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("fetching %s: body exceeds %d bytes", rawURL, maxBytes)
	}
	return body, nil
}
