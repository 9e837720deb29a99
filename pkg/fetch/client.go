// Package fetch performs rate-gated HTTP calls with per-attempt timeouts and
// capped exponential backoff.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultAttemptTimeout = 8 * time.Second
	defaultUserAgent      = "marketboard/1.0"
)

// Client issues JSON requests against one upstream.
type Client struct {
	name       string
	httpClient *http.Client
	gate       *Gate
	retry      *RetryHandler
	timeout    time.Duration
	headers    http.Header
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithGate shares a rate gate across clients of the same upstream.
func WithGate(g *Gate) Option {
	return func(c *Client) {
		c.gate = g
	}
}

// WithRetry overrides the retry policy.
func WithRetry(r *RetryHandler) Option {
	return func(c *Client) {
		if r != nil {
			c.retry = r
		}
	}
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if key != "" && value != "" {
			c.headers.Set(key, value)
		}
	}
}

// NewClient constructs a Client. name labels logs and metrics.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		httpClient: &http.Client{},
		retry:      NewRetryHandler(RetryConfig{}),
		timeout:    defaultAttemptTimeout,
		headers:    make(http.Header),
	}
	c.headers.Set("Accept", "application/json")
	c.headers.Set("User-Agent", defaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON posts body as JSON and decodes the reply into out.
func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("fetch %s: encode request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

// Once performs a single attempt without waiting on the gate or retrying.
// It is meant for cheap liveness probes.
func (c *Client) Once(ctx context.Context, method, url string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("fetch %s: encode request: %w", c.name, err)
		}
	}
	return c.attempt(ctx, method, url, payload, out)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	total := c.retry.Config().MaxAttempts
	return c.retry.Do(ctx, func(attempt int) error {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}
		err := c.attempt(ctx, method, url, payload, out)
		if err == nil {
			return nil
		}
		logger := logx.WithContext(ctx)
		if IsRateLimited(err) {
			logger.Errorf("fetch %s: rate limited (status=429) attempt %d/%d", c.name, attempt, total)
		} else {
			logger.Errorf("fetch %s: attempt %d/%d failed: %v", c.name, attempt, total, err)
		}
		return err
	})
}

// attempt runs one request under its own timeout; expiry aborts the request.
func (c *Client) attempt(ctx context.Context, method, url string, payload []byte, out any) (err error) {
	start := time.Now()
	defer func() {
		attemptLatency.WithLabelValues(c.name).Observe(float64(time.Since(start).Milliseconds()))
		switch {
		case err == nil:
			attemptsTotal.WithLabelValues(c.name, outcomeOK).Inc()
		case IsRateLimited(err):
			attemptsTotal.WithLabelValues(c.name, outcomeRateLimited).Inc()
		default:
			attemptsTotal.WithLabelValues(c.name, outcomeError).Inc()
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, body)
	if err != nil {
		return fmt.Errorf("fetch %s: build request: %w", c.name, err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fetch %s: read response: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: trimBody(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("fetch %s: decode response: %w", c.name, err)
	}
	return nil
}
