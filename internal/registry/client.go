// Package registry resolves company identities against a national company
// registry over HTTP.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Enhetsregisteret API
const DefaultBaseURL = "https://data.brreg.no/enhetsregisteret/api"

// DefaultTimeout bounds each registry call
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a registry response is read
const maxBodySize = 4 * 1024 * 1024

//go:generate mockgen -source=client.go -destination=mocks/mock_doer.go -package=mocks Doer

// Doer is the minimal interface needed from an HTTP client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the registry's lookup and search endpoints
type Client struct {
	baseURL string
	timeout time.Duration
	doer    Doer
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithDoer sets a custom HTTP doer (for testing)
func WithDoer(d Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// NewClient creates a registry client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = &http.Client{Timeout: timeout}
	}
	return c
}

// BaseURL returns the configured registry root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// searchResponse is the paged search envelope; only the first hit is used
type searchResponse struct {
	Embedded struct {
		Entities []json.RawMessage `json:"enheter"`
	} `json:"_embedded"`
}

// LookupByID fetches one entity by organisation number. Separators in the
// identifier are dropped; the registry only accepts the digits.
func (c *Client) LookupByID(ctx context.Context, identifier string) (Record, error) {
	const op = "lookup"

	digits := NormalizeIdentifier(identifier)
	if digits == "" {
		return nil, newError(ErrorBadData, op, fmt.Sprintf("identifier %q has no digits", identifier), nil)
	}

	body, err := c.get(ctx, op, fmt.Sprintf("%s/enheter/%s", c.baseURL, url.PathEscape(digits)))
	if err != nil {
		return nil, err
	}

	rec, err := decodeRecord(body)
	if err != nil {
		return nil, newError(ErrorBadData, op, "failed to parse response", err)
	}
	return rec, nil
}

// SearchByName returns the first entity of a name search. The registry's
// ranking is not guaranteed, so the hit is a best-effort guess.
func (c *Client) SearchByName(ctx context.Context, name string) (Record, error) {
	const op = "search"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrorBadData, op, "name cannot be empty", nil)
	}

	q := url.Values{}
	q.Set("navn", name)
	body, err := c.get(ctx, op, fmt.Sprintf("%s/enheter?%s", c.baseURL, q.Encode()))
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newError(ErrorBadData, op, "failed to parse response", err)
	}
	if len(resp.Embedded.Entities) == 0 {
		return nil, newError(ErrorNotFound, op, fmt.Sprintf("no entity named %q", name), nil)
	}

	rec, err := decodeRecord(resp.Embedded.Entities[0])
	if err != nil {
		return nil, newError(ErrorBadData, op, "failed to parse first result", err)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, op, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, newError(ErrorInternal, op, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, newError(ErrorTimeout, op, "request timeout", err)
		}
		return nil, newError(ErrorProviderOutage, op, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, newError(ErrorBadData, op, "failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, newError(ErrorNotFound, op, "entity not found", nil)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, newError(ErrorAuthentication, op, fmt.Sprintf("authentication failed: %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError(ErrorRateLimited, op, "rate limit exceeded", nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, newError(ErrorProviderOutage, op, fmt.Sprintf("registry unavailable: %d", resp.StatusCode), nil)
	default:
		return nil, newError(ErrorInternal, op, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}
}

// NormalizeIdentifier keeps only the ASCII digits of an organisation number
func NormalizeIdentifier(identifier string) string {
	var b strings.Builder
	for _, r := range identifier {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
