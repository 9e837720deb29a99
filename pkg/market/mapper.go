package market

import "strings"

// Asset describes an instrument known to the application.
type Asset struct {
	Symbol string
	Name   string
	Type   AssetType
	// IDs holds the provider-native identifier keyed by provider kind.
	IDs map[string]string
}

// AssetMeta is the display metadata for a ticker.
type AssetMeta struct {
	Name string
	Type AssetType
}

// DefaultAssets is the static ticker table. It is never mutated at runtime.
var DefaultAssets = []Asset{
	{Symbol: "BTC", Name: "Bitcoin", Type: AssetCrypto, IDs: map[string]string{"coingecko": "bitcoin", "hyperliquid": "BTC"}},
	{Symbol: "ETH", Name: "Ethereum", Type: AssetCrypto, IDs: map[string]string{"coingecko": "ethereum", "hyperliquid": "ETH"}},
	{Symbol: "SOL", Name: "Solana", Type: AssetCrypto, IDs: map[string]string{"coingecko": "solana", "hyperliquid": "SOL"}},
	{Symbol: "TRX", Name: "Tron", Type: AssetCrypto, IDs: map[string]string{"coingecko": "tron", "hyperliquid": "TRX"}},
	{Symbol: "ADA", Name: "Cardano", Type: AssetCrypto, IDs: map[string]string{"coingecko": "cardano", "hyperliquid": "ADA"}},
	{Symbol: "DOT", Name: "Polkadot", Type: AssetCrypto, IDs: map[string]string{"coingecko": "polkadot", "hyperliquid": "DOT"}},
	{Symbol: "MATIC", Name: "Polygon", Type: AssetCrypto, IDs: map[string]string{"coingecko": "matic-network", "hyperliquid": "MATIC"}},
	{Symbol: "DOGE", Name: "Dogecoin", Type: AssetCrypto, IDs: map[string]string{"coingecko": "dogecoin", "hyperliquid": "DOGE"}},
	{Symbol: "LTC", Name: "Litecoin", Type: AssetCrypto, IDs: map[string]string{"coingecko": "litecoin", "hyperliquid": "LTC"}},
	{Symbol: "LINK", Name: "Chainlink", Type: AssetCrypto, IDs: map[string]string{"coingecko": "chainlink", "hyperliquid": "LINK"}},
	{Symbol: "DJ30", Name: "Dow Jones 30", Type: AssetIndex},
	{Symbol: "EURUSD", Name: "EUR/USD", Type: AssetForex},
	{Symbol: "OIL", Name: "Crude Oil", Type: AssetCommodity},
	{Symbol: "GOLD", Name: "Gold", Type: AssetCommodity},
}

// Mapper translates tickers into provider ids and display metadata.
type Mapper struct {
	bySymbol map[string]Asset
}

// NewMapper indexes the supplied assets by upper-cased ticker.
func NewMapper(assets []Asset) *Mapper {
	index := make(map[string]Asset, len(assets))
	for _, asset := range assets {
		key := normalizeSymbol(asset.Symbol)
		if key == "" {
			continue
		}
		index[key] = asset
	}
	return &Mapper{bySymbol: index}
}

// DefaultMapper returns a Mapper over DefaultAssets.
func DefaultMapper() *Mapper {
	return NewMapper(DefaultAssets)
}

// ProviderID resolves the provider-native id for symbol.
func (m *Mapper) ProviderID(provider, symbol string) (string, bool) {
	asset, ok := m.bySymbol[normalizeSymbol(symbol)]
	if !ok {
		return "", false
	}
	id, ok := asset.IDs[strings.ToLower(provider)]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// MapSymbols converts tickers to provider ids, silently dropping unmapped tickers.
// Duplicate ids are collapsed while keeping first-seen order.
func (m *Mapper) MapSymbols(provider string, symbols []string) []string {
	ids := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		id, ok := m.ProviderID(provider, symbol)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Meta returns display metadata. Symbols outside the table get the raw
// symbol as name and AssetUnknown as type.
func (m *Mapper) Meta(symbol string) AssetMeta {
	if asset, ok := m.bySymbol[normalizeSymbol(symbol)]; ok {
		return AssetMeta{Name: asset.Name, Type: asset.Type}
	}
	return AssetMeta{Name: symbol, Type: AssetUnknown}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
