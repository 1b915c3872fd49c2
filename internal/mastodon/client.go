package mastodon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "mastofeed/1.0 (+https://github.com/pders01/mastofeed)"
	DefaultTimeout   = 5 * time.Second

	// maxBodySize bounds how much of a response is read into memory.
	maxBodySize = 8 << 20
)

type Client struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	scheme    string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return NewClientWithHTTP(&http.Client{}, timeout, userAgent)
}

// NewClientWithHTTP builds a client on top of an existing http.Client,
// typically one with a custom transport.
func NewClientWithHTTP(hc *http.Client, timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		client:    hc,
		userAgent: userAgent,
		timeout:   timeout,
		scheme:    "https",
	}
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Statuses issues a single GET for the query and returns the raw JSON body,
// validated to be an array. Nothing is retried.
func (c *Client) Statuses(ctx context.Context, q FeedQuery) ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, q.StatusesURL(c.scheme))
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: KindHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("reading response: %w", err)}
	}

	if _, err := ParseStatuses(body); err != nil {
		return nil, err
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request context once the body has been consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
