package hyperliquid

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// MarketInfo is the day summary for one perpetual.
type MarketInfo struct {
	Symbol       string  // Canonical Hyperliquid symbol
	MarkPrice    float64 // Mark price, falling back to mid
	PrevDayPrice float64 // Price 24h ago, 0 when unknown
	DayNtlVolume float64 // 24h notional volume in USD
}

// GetMarketInfos refreshes the asset directory once and returns the day
// summary for every requested symbol that is listed, active and priced.
func (c *Client) GetMarketInfos(ctx context.Context, symbols []string) (map[string]MarketInfo, error) {
	if len(symbols) == 0 {
		return map[string]MarketInfo{}, nil
	}
	if err := c.refreshSymbolDirectory(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]MarketInfo, len(symbols))
	for _, symbol := range symbols {
		info, err := c.marketInfoFromCache(symbol)
		if err != nil {
			continue
		}
		out[symbol] = info
	}
	return out, nil
}

func (c *Client) marketInfoFromCache(symbol string) (MarketInfo, error) {
	canonical, ctxData, meta, ok := c.assetCtxFromCache(symbol)
	if !ok || meta.IsDelisted {
		return MarketInfo{}, ErrSymbolNotFound
	}
	mark, err := parseFloat(ctxData.MarkPx)
	if err != nil {
		return MarketInfo{}, fmt.Errorf("hyperliquid: parse mark price: %w", err)
	}
	if math.IsNaN(mark) {
		if mark, err = parseFloat(ctxData.MidPx); err != nil {
			return MarketInfo{}, fmt.Errorf("hyperliquid: parse mid price: %w", err)
		}
	}
	if math.IsNaN(mark) {
		return MarketInfo{}, fmt.Errorf("hyperliquid: missing mark price for %s", canonical)
	}
	prev, err := parseFloat(ctxData.PrevDayPx)
	if err != nil || math.IsNaN(prev) {
		prev = 0
	}
	volume, err := parseFloat(ctxData.DayNtlVlm)
	if err != nil || math.IsNaN(volume) {
		volume = 0
	}
	return MarketInfo{Symbol: canonical, MarkPrice: mark, PrevDayPrice: prev, DayNtlVolume: volume}, nil
}

func parseFloat(val string) (float64, error) {
	if val == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(val, 64)
}
