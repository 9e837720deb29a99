package market

import (
	"math"
	"time"
)

// Normalizer turns provider readings into Datum values.
type Normalizer struct {
	Mapper *Mapper
	Synth  Synthesizer
	Now    func() time.Time
}

// Normalize builds one Datum per requested ticker, in request order. A ticker
// that is unmapped for the provider, or missing from quotes, is synthesized
// whole; provider and synthetic fields are never mixed within one Datum.
func (n Normalizer) Normalize(batch Batch, symbols []string) []Datum {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	out := make([]Datum, 0, len(symbols))
	for _, symbol := range symbols {
		id, ok := n.Mapper.ProviderID(batch.Provider, symbol)
		if !ok {
			out = append(out, n.Synth.ForSymbol(symbol))
			continue
		}
		quote, ok := batch.Quotes[id]
		if !ok || !usable(quote) {
			out = append(out, n.Synth.ForSymbol(symbol))
			continue
		}
		updated := quote.UpdatedAt
		if updated.IsZero() {
			updated = now()
		}
		source := batch.Source
		if source == "" {
			source = SourceLive
		}
		out = append(out, Datum{
			Symbol:           symbol,
			Name:             n.Mapper.Meta(symbol).Name,
			Price:            quote.Price,
			Change24h:        finite(quote.Change24h),
			ChangePercent24h: finite(quote.ChangePct24h),
			Volume24h:        nonNegative(quote.Volume24h),
			MarketCap:        nonNegative(quote.MarketCap),
			SparklineData:    n.Synth.Sparkline(finite(quote.ChangePct24h)),
			LastUpdated:      updated,
			Source:           source,
		})
	}
	return out
}

func usable(q Quote) bool {
	return !math.IsNaN(q.Price) && !math.IsInf(q.Price, 0) && q.Price >= 0
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	return v
}

// ChangeFromPercent derives the absolute 24h delta from the current price and
// the percent change relative to the price 24h ago.
func ChangeFromPercent(price, pct float64) float64 {
	if pct <= -100 {
		return 0
	}
	return price * pct / (100 + pct)
}
