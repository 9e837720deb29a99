package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketboard/pkg/fetch"
	"marketboard/pkg/market"
)

func TestProviderQuotes(t *testing.T) {
	server, provider, hits := newMockProvider(t)
	defer server.Close()

	quotes, err := provider.Quotes(context.Background(), []string{"BTC", "kpepe", "DEAD", "NOPE"})
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(hits), "one metaAndAssetCtxs call per batch")
	require.Len(t, quotes, 2)

	btc := quotes["BTC"]
	require.InDelta(t, 150.2, btc.Price, 1e-9)
	require.InDelta(t, 0.7, btc.Change24h, 1e-9)
	require.InDelta(t, 0.7/149.5*100, btc.ChangePct24h, 1e-9)
	require.InDelta(t, 2500000, btc.Volume24h, 1e-9)
	require.Zero(t, btc.MarketCap)

	pepe := quotes["kpepe"]
	require.InDelta(t, 0.00095, pepe.Price, 1e-12)
}

func TestProviderQuotesMidFallbackAndMissingPrev(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []interface{}{
			map[string]interface{}{"universe": []map[string]interface{}{{"name": "ETH", "szDecimals": 4}}},
			[]map[string]interface{}{{"markPx": "", "midPx": "2239.5", "prevDayPx": "", "dayNtlVlm": "bad"}},
		})
	}))
	defer server.Close()

	provider := NewProvider(NewClient(WithBaseURL(server.URL)))
	quotes, err := provider.Quotes(context.Background(), []string{"ETH"})
	require.NoError(t, err)
	eth := quotes["ETH"]
	assert.InDelta(t, 2239.5, eth.Price, 1e-9)
	assert.Zero(t, eth.Change24h)
	assert.Zero(t, eth.ChangePct24h)
	assert.Zero(t, eth.Volume24h)
}

func TestProviderQuotesUpstreamFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	retry := fetch.NewRetryHandler(fetch.RetryConfig{MaxAttempts: 3}).
		WithSleeper(func(context.Context, time.Duration) error { return nil })
	provider := NewProvider(NewClient(WithBaseURL(server.URL), WithFetchOptions(fetch.WithRetry(retry))))

	_, err := provider.Quotes(context.Background(), []string{"BTC"})
	require.ErrorIs(t, err, fetch.ErrFetchFailed)
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestClientGetMarketInfosSkipsDelisted(t *testing.T) {
	server, provider, _ := newMockProvider(t)
	defer server.Close()

	infos, err := provider.client.GetMarketInfos(context.Background(), []string{"btcusdt", "DEAD"})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	info := infos["btcusdt"]
	require.Equal(t, "BTC", info.Symbol)
	require.InDelta(t, 149.5, info.PrevDayPrice, 1e-9)

	_, err = provider.client.marketInfoFromCache("DEAD")
	require.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestProviderPing(t *testing.T) {
	server, provider, hits := newMockProvider(t)
	defer server.Close()

	require.NoError(t, provider.Ping(context.Background()))
	require.Zero(t, atomic.LoadInt32(hits))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "BTC", normalizeKey(" btcusdt "))
	assert.Equal(t, "KPEPE", normalizeKey("kPEPE"))
	assert.Equal(t, "", normalizeKey("  "))
}

func TestRegisteredBuilder(t *testing.T) {
	cfg := &market.Config{
		Providers: map[string]*market.ProviderConfig{
			"hl": {Type: Kind, MaxRetries: 2, Timeout: time.Second},
		},
	}
	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	require.Equal(t, Kind, providers["hl"].Kind())
}

// --- helpers ---

// newMockProvider serves metaAndAssetCtxs and allMids; hits counts metaAndAssetCtxs calls.
func newMockProvider(t *testing.T) (*httptest.Server, *Provider, *int32) {
	t.Helper()

	metaPayload := []interface{}{
		map[string]interface{}{
			"universe": []map[string]interface{}{
				{"name": "BTC", "szDecimals": 5, "isDelisted": false},
				{"name": "kPEPE", "szDecimals": 0, "isDelisted": false},
				{"name": "DEAD", "szDecimals": 0, "isDelisted": true},
			},
		},
		[]map[string]interface{}{
			{"prevDayPx": "149.5", "dayNtlVlm": "2500000", "dayBaseVlm": "1234.56", "markPx": "150.2", "midPx": "150.0"},
			{"prevDayPx": "0.00094", "dayNtlVlm": "85234.1234", "markPx": "0.00095", "midPx": "0.00095"},
			{"prevDayPx": "1", "dayNtlVlm": "0", "markPx": "1", "midPx": "1"},
		},
	}
	allMids := map[string]string{"BTC": "150", "kPEPE": "0.00095"}

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req InfoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch req.Type {
		case "metaAndAssetCtxs":
			atomic.AddInt32(&hits, 1)
			writeJSON(w, metaPayload)
		case "allMids":
			writeJSON(w, allMids)
		default:
			http.Error(w, "unsupported type", http.StatusBadRequest)
		}
	}))

	client := NewClient(WithBaseURL(server.URL), WithFetchOptions(fetch.WithHTTPClient(server.Client())))
	return server, NewProvider(client), &hits
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
