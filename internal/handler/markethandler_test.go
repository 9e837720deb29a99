package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketboard/internal/svc"
	"marketboard/pkg/aggregator"
	"marketboard/pkg/market"
	"marketboard/pkg/market/synth"
	"marketboard/pkg/poller"
)

type fixedProvider struct {
	pingErr error
}

func (fixedProvider) Kind() string { return "coingecko" }

func (fixedProvider) Quotes(context.Context, []string) (market.Quotes, error) {
	return market.Quotes{"bitcoin": {Price: 64000, ChangePct24h: 2}}, nil
}

func (p fixedProvider) Ping(context.Context) error { return p.pingErr }

func newServiceContext(p market.Provider) *svc.ServiceContext {
	agg := aggregator.New("coingecko", p,
		aggregator.WithSymbols([]string{"BTC"}),
		aggregator.WithGenerator(synth.New(synth.WithSeed(1))),
	)
	return &svc.ServiceContext{
		Aggregator: agg,
		Poller:     poller.New(agg, poller.Config{UpdateInterval: time.Minute}),
	}
}

func serve(t *testing.T, h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec
}

func TestMarketDataHandlerHydratesOnFirstRequest(t *testing.T) {
	svcCtx := newServiceContext(fixedProvider{})
	rec := serve(t, MarketDataHandler(svcCtx), http.MethodGet, "/api/market")

	var body struct {
		Data          []market.Datum `json:"data"`
		APIStatus     string         `json:"apiStatus"`
		LiveDataCount int            `json:"liveDataCount"`
		MockDataCount int            `json:"mockDataCount"`
		LastUpdated   *time.Time     `json:"lastUpdated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, len(synth.TraditionalSymbols())+1)
	assert.Equal(t, "BTC", body.Data[len(body.Data)-1].Symbol)
	assert.Equal(t, 1, body.LiveDataCount)
	assert.Equal(t, len(synth.TraditionalSymbols()), body.MockDataCount)
	assert.Equal(t, "healthy", body.APIStatus)
	assert.NotNil(t, body.LastUpdated)
}

func TestHealthHandlerReportsDown(t *testing.T) {
	svcCtx := newServiceContext(fixedProvider{pingErr: context.DeadlineExceeded})
	rec := serve(t, HealthHandler(svcCtx), http.MethodGet, "/api/market/health")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "down", body["status"])
	assert.Equal(t, "coingecko", body["provider"])
}

func TestCacheHandlers(t *testing.T) {
	svcCtx := newServiceContext(fixedProvider{})
	serve(t, RefreshHandler(svcCtx), http.MethodPost, "/api/market/refresh")

	rec := serve(t, CacheStatsHandler(svcCtx), http.MethodGet, "/api/market/cache")
	var stats market.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, []string{"crypto-BTC"}, stats.Keys)

	rec = serve(t, ClearCacheHandler(svcCtx), http.MethodDelete, "/api/market/cache")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.Size)
}
