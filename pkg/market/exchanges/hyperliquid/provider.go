package hyperliquid

import (
	"context"

	"marketboard/pkg/fetch"
	"marketboard/pkg/market"
)

// Kind is the provider family name used in symbol mapping.
const Kind = "hyperliquid"

// Provider wraps Hyperliquid client calls behind the generic market.Provider contract.
// Market cap is not published by Hyperliquid and is reported as 0.
type Provider struct {
	client *Client
}

// NewProvider constructs a Hyperliquid market provider.
func NewProvider(client *Client) *Provider {
	if client == nil {
		client = NewClient()
	}
	return &Provider{client: client}
}

func init() {
	market.RegisterProvider(Kind, func(_ string, cfg *market.ProviderConfig) (market.Provider, error) {
		client := NewClient(
			WithBaseURL(cfg.BaseURL),
			WithFetchOptions(
				fetch.WithGate(fetch.NewGate(cfg.RateLimit)),
				fetch.WithRetry(fetch.NewRetryHandler(fetch.RetryConfig{MaxAttempts: cfg.MaxRetries})),
				fetch.WithAttemptTimeout(cfg.Timeout),
				fetch.WithHeader("User-Agent", cfg.UserAgent),
			),
		)
		return NewProvider(client), nil
	})
}

// Kind implements market.Provider.
func (p *Provider) Kind() string { return Kind }

// Quotes implements market.Provider using one metaAndAssetCtxs request.
func (p *Provider) Quotes(ctx context.Context, ids []string) (market.Quotes, error) {
	infos, err := p.client.GetMarketInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	quotes := make(market.Quotes, len(infos))
	for id, info := range infos {
		q := market.Quote{Price: info.MarkPrice, Volume24h: info.DayNtlVolume}
		if info.PrevDayPrice > 0 {
			q.Change24h = info.MarkPrice - info.PrevDayPrice
			q.ChangePct24h = q.Change24h / info.PrevDayPrice * 100
		}
		quotes[id] = q
	}
	return quotes, nil
}

// Ping implements market.Provider.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
