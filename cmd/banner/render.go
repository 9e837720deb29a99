package main

import (
	"fmt"
	"strings"

	"marketboard/pkg/aggregator"
	"marketboard/pkg/market"
	"marketboard/pkg/poller"
)

// StatusLabel maps a provider classification to the banner badge.
func StatusLabel(status aggregator.Status) string {
	switch status {
	case aggregator.StatusHealthy:
		return "Live"
	case aggregator.StatusDegraded:
		return "Limited"
	default:
		return "Offline"
	}
}

// RenderLine formats one ticker line, e.g.
// [Live 14:02:11] BTC $64,000.00 +2.10% | ETH $3,100.00 -1.30% (live 2 / mock 4)
func RenderLine(state poller.State) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(StatusLabel(state.APIStatus))
	if state.LastUpdated != nil {
		b.WriteString(" ")
		b.WriteString(state.LastUpdated.Local().Format("15:04:05"))
	}
	if state.IsStale {
		b.WriteString(" stale")
	}
	if state.RetryCount > 0 {
		fmt.Fprintf(&b, " retry %d", state.RetryCount)
	}
	b.WriteString("] ")

	items := make([]string, 0, len(state.Data))
	for _, d := range state.Data {
		items = append(items, renderItem(d))
	}
	b.WriteString(strings.Join(items, " | "))
	fmt.Fprintf(&b, " (live %d / mock %d)", state.LiveDataCount, state.MockDataCount)
	return b.String()
}

func renderItem(d market.Datum) string {
	marker := ""
	if d.Synthesized() {
		marker = "*"
	}
	return fmt.Sprintf("%s%s $%s %s", d.Symbol, marker, market.FormatPrice(d.Price), market.FormatPercent(d.ChangePercent24h))
}
