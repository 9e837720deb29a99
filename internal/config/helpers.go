package config

import (
	"marketboard/pkg/market"
)

// MustLoadMarket loads etc/market.yaml from the project root and panics on error.
// It lets tools that only need providers skip the REST and storage sections.
func MustLoadMarket() *market.Config {
	return market.MustLoad()
}

// MustSelectMarketProviders builds every configured provider and resolves the
// primary/alternate pair.
func MustSelectMarketProviders(cfg *market.Config) market.Selection {
	providers, err := cfg.BuildProviders()
	if err != nil {
		panic(err)
	}
	sel, err := cfg.Select(providers)
	if err != nil {
		panic(err)
	}
	return sel
}
