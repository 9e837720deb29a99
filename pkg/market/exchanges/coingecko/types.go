package coingecko

// PriceEntry is one id's row in a simple/price reply. Every field may be absent.
type PriceEntry struct {
	USD           *float64 `json:"usd"`
	USD24hChange  *float64 `json:"usd_24h_change"`
	USD24hVol     *float64 `json:"usd_24h_vol"`
	USDMarketCap  *float64 `json:"usd_market_cap"`
	LastUpdatedAt *int64   `json:"last_updated_at"`
}

// SimplePriceResponse maps coin ids to their price rows.
type SimplePriceResponse map[string]PriceEntry

// PingResponse mirrors the /ping reply.
type PingResponse struct {
	GeckoSays string `json:"gecko_says"`
}
