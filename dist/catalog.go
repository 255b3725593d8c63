package dist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxIndexBytes caps the release index response size to keep a malformed or
// malicious mirror from exhausting memory.
const maxIndexBytes = 10 << 20

// Release is one entry of the remote release index. The catalog carries no
// metadata about checksums or supported platforms, so platform filtering
// happens entirely in the locator.
type Release struct {
	Version string `json:"version"`
}

// HTTPClient is the minimal http client surface, replaceable in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches the remote release index.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

type ClientOption func(c *Client)

// WithBaseURL points the client at a different release file server.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the http client used for index requests.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a release index client against the default mirror.
func NewClient(opts ...ClientOption) *Client {
	client := Client{
		baseURL:    DefaultMirror,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(&client)
	}

	return &client
}

// Releases fetches the release index, newest first as published upstream.
// Version strings are normalized without their leading 'v'. The result is
// fetched fresh on every call and never cached; a run matches against it
// once and discards it.
func (c *Client) Releases(ctx context.Context) ([]Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/index.json", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
	}

	var releases []Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxIndexBytes)).Decode(&releases); err != nil {
		return nil, fmt.Errorf("catalog: decode index: %w", err)
	}

	for i := range releases {
		releases[i].Version = strings.TrimPrefix(releases[i].Version, "v")
	}

	return releases, nil
}
