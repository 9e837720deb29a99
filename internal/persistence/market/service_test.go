package marketpersist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachekeys "marketboard/internal/cache"
	"marketboard/internal/config"
	"marketboard/pkg/market"
)

var errNotFound = errors.New("not found")

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	expires map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, expires: map[string]time.Duration{}}
}

func (m *memCache) GetCtx(_ context.Context, key string, val any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return errNotFound
	}
	return json.Unmarshal(raw, val)
}

func (m *memCache) SetWithExpireCtx(_ context.Context, key string, val any, expire time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	m.expires[key] = expire
	return nil
}

func (m *memCache) IsNotFound(err error) bool { return errors.Is(err, errNotFound) }

func TestNewServiceWithoutStores(t *testing.T) {
	assert.Nil(t, NewService(Config{}))
}

func TestRecordBatchCachesLivePrices(t *testing.T) {
	mc := newMemCache()
	ttl := cachekeys.NewTTLSet(config.CacheTTL{Short: 10, Medium: 60, Long: 300})
	svc := NewService(Config{Cache: mc, TTL: ttl})
	require.NotNil(t, svc)

	err := svc.RecordBatch(context.Background(), "coingecko", []market.Datum{
		{Symbol: "BTC", Price: 64000, Source: market.SourceLive},
		{Symbol: "ETH", Price: 3100, Source: market.SourceLive},
		{Symbol: "ZZZ", Price: 1, Source: market.SourceSynthesized},
	})
	require.NoError(t, err)

	var btc map[string]float64
	require.NoError(t, mc.GetCtx(context.Background(), cachekeys.PriceLatestByProviderKey("coingecko", "BTC"), &btc))
	assert.Equal(t, 64000.0, btc["price"])
	assert.Equal(t, 10*time.Second, mc.expires[cachekeys.PriceLatestKey("BTC")])

	var prices map[string]float64
	require.NoError(t, mc.GetCtx(context.Background(), cachekeys.CryptoPricesKey(), &prices))
	assert.Equal(t, map[string]float64{"coingecko:BTC": 64000, "coingecko:ETH": 3100}, prices)
	_, synthesized := mc.entries[cachekeys.PriceLatestKey("ZZZ")]
	assert.False(t, synthesized)
}

func TestRecordBatchMergesCryptoPrices(t *testing.T) {
	mc := newMemCache()
	svc := NewService(Config{Cache: mc, TTL: cachekeys.NewTTLSet(config.CacheTTL{})})

	require.NoError(t, svc.RecordBatch(context.Background(), "coingecko", []market.Datum{{Symbol: "BTC", Price: 1, Source: market.SourceLive}}))
	require.NoError(t, svc.RecordBatch(context.Background(), "hyperliquid", []market.Datum{{Symbol: "BTC", Price: 2, Source: market.SourceAlternate}}))

	var prices map[string]float64
	require.NoError(t, mc.GetCtx(context.Background(), cachekeys.CryptoPricesKey(), &prices))
	assert.Len(t, prices, 2)
	assert.Equal(t, 2.0, prices["hyperliquid:BTC"])
}
