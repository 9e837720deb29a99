package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"marketboard/pkg/fetch"
	"marketboard/pkg/market"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client wraps the CoinGecko public REST API.
type Client struct {
	baseURL string
	http    *fetch.Client
}

// Option configures a new Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL      string
	fetchOptions []fetch.Option
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithFetchOptions passes options to the underlying fetch client.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(c *clientConfig) {
		c.fetchOptions = append(c.fetchOptions, opts...)
	}
}

// NewClient constructs a CoinGecko client.
func NewClient(opts ...Option) *Client {
	cfg := &clientConfig{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
		http:    fetch.NewClient("coingecko", cfg.fetchOptions...),
	}
}

// SimplePrice fetches USD price, 24h change, volume, market cap and update
// time for ids in one request.
func (c *Client) SimplePrice(ctx context.Context, ids []string) (SimplePriceResponse, error) {
	if len(ids) == 0 {
		return SimplePriceResponse{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_market_cap", "true")
	q.Set("include_last_updated_at", "true")

	var out SimplePriceResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/simple/price?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("coingecko: simple price: %w", err)
	}
	if out == nil {
		out = SimplePriceResponse{}
	}
	return out, nil
}

// Ping issues one unretried request to /ping. A reply that is JSON but not an
// object yields market.ErrUnexpectedPayload.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var raw json.RawMessage
	if err := c.http.Once(ctx, http.MethodGet, c.baseURL+"/ping", nil, &raw); err != nil {
		return nil, fmt.Errorf("coingecko: ping: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("coingecko: ping: %w", market.ErrUnexpectedPayload)
	}
	var out PingResponse
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("coingecko: ping: %w", market.ErrUnexpectedPayload)
	}
	return &out, nil
}
