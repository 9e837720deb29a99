package market

import (
	"context"
	"errors"
	"time"
)

// ErrUnexpectedPayload marks an upstream reply that arrived but could not be interpreted.
var ErrUnexpectedPayload = errors.New("market: unexpected upstream payload")

// Source tags where a Datum came from. It is always set by the producer.
type Source string

const (
	SourceLive        Source = "live-provider"
	SourceAlternate   Source = "alternate-provider"
	SourceSynthesized Source = "synthesized"
)

// AssetType classifies an instrument for display purposes.
type AssetType string

const (
	AssetCrypto    AssetType = "crypto"
	AssetIndex     AssetType = "index"
	AssetForex     AssetType = "forex"
	AssetCommodity AssetType = "commodity"
	AssetUnknown   AssetType = "unknown"
)

// Datum is one priced instrument at one point in time.
type Datum struct {
	Symbol           string    `json:"symbol" msgpack:"symbol"`
	Name             string    `json:"name" msgpack:"name"`
	Price            float64   `json:"price" msgpack:"price"`
	Change24h        float64   `json:"change24h" msgpack:"change24h"`
	ChangePercent24h float64   `json:"changePercent24h" msgpack:"changePercent24h"`
	Volume24h        float64   `json:"volume24h" msgpack:"volume24h"`
	MarketCap        float64   `json:"marketCap" msgpack:"marketCap"`
	SparklineData    []float64 `json:"sparklineData" msgpack:"sparklineData"` // illustrative trend, centred near 100
	LastUpdated      time.Time `json:"lastUpdated" msgpack:"lastUpdated"`
	Source           Source    `json:"source" msgpack:"source"`
}

// Synthesized reports whether the datum was produced locally instead of fetched.
func (d Datum) Synthesized() bool {
	return d.Source == SourceSynthesized
}

// Quote is a provider reading for one instrument, keyed by the provider's own id.
type Quote struct {
	Price        float64   `msgpack:"price"`
	Change24h    float64   `msgpack:"change24h"`
	ChangePct24h float64   `msgpack:"changePct24h"`
	Volume24h    float64   `msgpack:"volume24h"`
	MarketCap    float64   `msgpack:"marketCap"`
	UpdatedAt    time.Time `msgpack:"updatedAt"` // zero when the provider omits it
}

// Quotes maps provider ids to readings. Ids absent from the map are treated as missing.
type Quotes map[string]Quote

// Batch is the cacheable result of one provider call for a list of tickers.
type Batch struct {
	Provider string `msgpack:"provider"`
	Source   Source `msgpack:"source"`
	Quotes   Quotes `msgpack:"quotes"`
}

// Provider exposes a batch price endpoint and a liveness probe.
type Provider interface {
	// Kind returns the provider family used for symbol mapping, e.g. "coingecko".
	Kind() string
	// Quotes fetches readings for the given provider ids in a single call.
	Quotes(ctx context.Context, ids []string) (Quotes, error)
	// Ping performs one lightweight request against the provider.
	Ping(ctx context.Context) error
}

// Synthesizer fabricates data when no live reading is usable.
type Synthesizer interface {
	ForSymbol(symbol string) Datum
	Sparkline(changePct float64) []float64
}
