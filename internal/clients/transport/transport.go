// Package transport provides the shared outbound HTTP plumbing for quote providers.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UserAgent is sent with every provider request
const UserAgent = "spielwiese-market-data-service/1.0"

// BatchSize is the maximum number of symbols sent in one provider request
const BatchSize = 25

// maxBodyBytes caps provider payloads
const maxBodyBytes = 8 << 20

// ErrUnexpectedStatus is wrapped by StatusError
var ErrUnexpectedStatus = errors.New("unexpected provider status")

// StatusError reports a non-2xx provider response
type StatusError struct {
	Provider string
	Code     int
	URL      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with %d: %s", e.Provider, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client performs GET requests for a named provider.
// The per-request deadline comes from the caller's context.
type Client struct {
	provider string
	http     *http.Client
}

// NewClient creates a client. A nil httpClient gets a default one with a 30s safety timeout.
func NewClient(provider string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{provider: provider, http: httpClient}
}

// GetBytes fetches url and returns the body of a 2xx response
func (c *Client) GetBytes(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.provider, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Provider: c.provider, Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.GetBytes(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", c.provider, err)
	}
	return nil
}
