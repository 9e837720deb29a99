package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestResponseCacheRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cache := NewResponseCache[Batch](clock.Now)

	_, _, ok := cache.Get("crypto-BTC")
	require.False(t, ok)

	batch := Batch{Provider: "coingecko", Quotes: Quotes{"bitcoin": {Price: 1}}}
	cache.Set("crypto-BTC", batch)
	clock.Advance(20 * time.Second)

	got, age, ok := cache.Get("crypto-BTC")
	require.True(t, ok)
	require.Equal(t, batch, got)
	require.Equal(t, 20*time.Second, age)

	_, fresh := cache.Fresh("crypto-BTC", time.Minute)
	require.True(t, fresh)
}

func TestResponseCacheKeepsStaleEntries(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cache := NewResponseCache[string](clock.Now)
	cache.Set("k", "v1")
	clock.Advance(2 * time.Minute)

	_, fresh := cache.Fresh("k", time.Minute)
	require.False(t, fresh)

	stale, age, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, "v1", stale)
	require.Equal(t, 2*time.Minute, age)

	cache.Set("k", "v2")
	got, age, _ := cache.Get("k")
	require.Equal(t, "v2", got)
	require.Zero(t, age)
}

func TestResponseCacheStatsAndClear(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cache := NewResponseCache[int](clock.Now)
	require.Zero(t, cache.Stats().Size)
	require.True(t, cache.Stats().OldestEntry.IsZero())

	first := clock.Now()
	cache.Set("b", 1)
	clock.Advance(time.Second)
	cache.Set("a", 2)

	stats := cache.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, []string{"a", "b"}, stats.Keys)
	require.Equal(t, first, stats.OldestEntry)

	cache.Clear()
	require.Zero(t, cache.Stats().Size)
}
