package market_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	market "marketboard/pkg/market"
	_ "marketboard/pkg/market/exchanges/coingecko"
	_ "marketboard/pkg/market/exchanges/hyperliquid"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMarketConfig(t *testing.T) {
	path := writeConfig(t, `
default: coingecko
alternate: hyperliquid
symbols: [btc, eth, " sol "]
cache:
  freshness: 45s
providers:
  coingecko:
    type: coingecko
    base_url: https://api.coingecko.com/api/v3
    timeout: 6s
    rate_limit: 12s
    max_retries: 3
  hyperliquid:
    type: hyperliquid
`)

	cfg, err := market.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "coingecko", cfg.Default)
	require.Equal(t, []string{"BTC", "ETH", "SOL"}, cfg.Symbols)
	require.Equal(t, 45*time.Second, cfg.Cache.Freshness)
	require.Equal(t, market.DefaultHealthTimeout, cfg.Health.Timeout)

	cg := cfg.Providers["coingecko"]
	require.Equal(t, 6*time.Second, cg.Timeout)
	require.Equal(t, 12*time.Second, cg.RateLimit)
	require.Equal(t, 3, cg.MaxRetries)

	hl := cfg.Providers["hyperliquid"]
	require.Equal(t, market.DefaultAttemptTimeout, hl.Timeout)
	require.Equal(t, market.DefaultRateLimit, hl.RateLimit)
	require.Equal(t, market.DefaultMaxRetries, hl.MaxRetries)

	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)

	sel, err := cfg.Select(providers)
	require.NoError(t, err)
	require.Equal(t, "coingecko", sel.Primary.Kind())
	require.NotNil(t, sel.Alternate)
	require.Equal(t, "hyperliquid", sel.Alternate.Kind())
}

func TestMarketConfigDefaults(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
providers:
  cg:
    type: coingecko
`))
	require.NoError(t, err)
	require.Equal(t, market.DefaultCryptoSymbols, cfg.Symbols)
	require.Equal(t, market.DefaultFreshness, cfg.Cache.Freshness)

	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	sel, err := cfg.Select(providers)
	require.NoError(t, err)
	require.Equal(t, "cg", sel.PrimaryName)
	require.Nil(t, sel.Alternate)
}

func TestMarketConfigInvalidType(t *testing.T) {
	path := writeConfig(t, `
providers:
  demo:
    type: foobar
`)
	_, err := market.LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

func TestMarketConfigRejects(t *testing.T) {
	cases := map[string]string{
		"unknown alternate": `
default: cg
alternate: nope
providers:
  cg: {type: coingecko}
`,
		"alternate equals default": `
default: cg
alternate: cg
providers:
  cg: {type: coingecko}
`,
		"negative retries": `
providers:
  cg: {type: coingecko, max_retries: -1}
`,
		"bad duration": `
providers:
  cg: {type: coingecko, timeout: soon}
`,
		"empty providers": `default: ""`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := market.LoadConfigFromReader(strings.NewReader(body))
			require.Error(t, err)
		})
	}
}

// Ensures env placeholders are expanded and durations parsed.
func TestMarketConfig_EnvExpansionAndDurations(t *testing.T) {
	t.Setenv("CG_BASE", "https://coingecko.test/api/v3")
	t.Setenv("CG_KEY", "demo-key")
	t.Setenv("TOUT", "9s")

	path := writeConfig(t, `
default: cg
providers:
  cg:
    type: coingecko
    base_url: ${CG_BASE}
    api_key: ${CG_KEY}
    timeout: ${TOUT}
    rate_limit: "0"
`)
	cfg, err := market.LoadConfig(path)
	require.NoError(t, err)
	p := cfg.Providers["cg"]
	require.Equal(t, "https://coingecko.test/api/v3", p.BaseURL)
	require.Equal(t, "demo-key", p.APIKey)
	require.Equal(t, 9*time.Second, p.Timeout)
	require.Zero(t, p.RateLimit)
}
