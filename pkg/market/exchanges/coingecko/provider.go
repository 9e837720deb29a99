package coingecko

import (
	"context"
	"strings"
	"time"

	"marketboard/pkg/fetch"
	"marketboard/pkg/market"
)

// Kind is the provider family name used in symbol mapping.
const Kind = "coingecko"

// Provider adapts Client to market.Provider.
type Provider struct {
	client *Client
}

// NewProvider wraps client.
func NewProvider(client *Client) *Provider {
	if client == nil {
		client = NewClient()
	}
	return &Provider{client: client}
}

func init() {
	market.RegisterProvider(Kind, func(_ string, cfg *market.ProviderConfig) (market.Provider, error) {
		fetchOpts := []fetch.Option{
			fetch.WithGate(fetch.NewGate(cfg.RateLimit)),
			fetch.WithRetry(fetch.NewRetryHandler(fetch.RetryConfig{MaxAttempts: cfg.MaxRetries})),
			fetch.WithAttemptTimeout(cfg.Timeout),
			fetch.WithHeader("User-Agent", cfg.UserAgent),
		}
		if cfg.APIKey != "" {
			header := "x-cg-demo-api-key"
			if strings.Contains(cfg.BaseURL, "pro-api") {
				header = "x-cg-pro-api-key"
			}
			fetchOpts = append(fetchOpts, fetch.WithHeader(header, cfg.APIKey))
		}
		client := NewClient(WithBaseURL(cfg.BaseURL), WithFetchOptions(fetchOpts...))
		return NewProvider(client), nil
	})
}

// Kind implements market.Provider.
func (p *Provider) Kind() string { return Kind }

// Quotes implements market.Provider. Rows without a USD price are dropped so
// the normalizer treats them as missing.
func (p *Provider) Quotes(ctx context.Context, ids []string) (market.Quotes, error) {
	resp, err := p.client.SimplePrice(ctx, ids)
	if err != nil {
		return nil, err
	}
	quotes := make(market.Quotes, len(resp))
	for id, entry := range resp {
		if q, ok := toQuote(entry); ok {
			quotes[id] = q
		}
	}
	return quotes, nil
}

// Ping implements market.Provider.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Ping(ctx)
	return err
}

func toQuote(e PriceEntry) (market.Quote, bool) {
	if e.USD == nil {
		return market.Quote{}, false
	}
	q := market.Quote{Price: *e.USD}
	if e.USD24hChange != nil {
		q.ChangePct24h = *e.USD24hChange
		q.Change24h = market.ChangeFromPercent(q.Price, q.ChangePct24h)
	}
	if e.USD24hVol != nil {
		q.Volume24h = *e.USD24hVol
	}
	if e.USDMarketCap != nil {
		q.MarketCap = *e.USDMarketCap
	}
	if e.LastUpdatedAt != nil && *e.LastUpdatedAt > 0 {
		q.UpdatedAt = time.Unix(*e.LastUpdatedAt, 0)
	}
	return q, true
}
