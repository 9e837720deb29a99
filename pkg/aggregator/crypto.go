package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"marketboard/pkg/market"
)

// ErrFallback reports that no provider answered and the crypto rows came
// from an expired cache entry or the synthesizer.
var ErrFallback = errors.New("aggregator: crypto providers unavailable")

var errNoProviderIDs = errors.New("no provider ids for requested symbols")

// CacheKey is the response-cache key for a ticker list, in request order.
func CacheKey(symbols []string) string {
	return "crypto-" + strings.Join(symbols, ",")
}

// CryptoData returns one Datum per symbol. Sources are tried in order:
// fresh local cache, fresh mirror, primary provider, alternate provider,
// stale local cache, then synthesized data. The rows are always complete;
// the error wraps ErrFallback when neither provider could be used.
func (a *Aggregator) CryptoData(ctx context.Context, symbols []string) ([]market.Datum, error) {
	logger := logx.WithContext(ctx)
	key := CacheKey(symbols)

	if batch, ok := a.cache.Fresh(key, a.freshness); ok {
		logger.Infof("aggregator: using cached crypto data key=%s", key)
		recordPath(pathCache)
		return a.normalize(batch, symbols), nil
	}
	if batch, ok := a.loadMirror(ctx, key); ok {
		recordPath(pathMirror)
		return a.normalize(batch, symbols), nil
	}

	data, err := a.fetch(ctx, a.primaryName, a.primary, market.SourceLive, key, symbols)
	if err == nil {
		recordPath(pathPrimary)
		return data, nil
	}
	cause := fmt.Errorf("%s: %w", a.primaryName, err)
	if a.alternate != nil {
		altData, altErr := a.fetch(ctx, a.alternateName, a.alternate, market.SourceAlternate, key, symbols)
		if altErr == nil {
			recordPath(pathAlternate)
			return altData, nil
		}
		cause = fmt.Errorf("%w; %s: %w", cause, a.alternateName, altErr)
	}

	if batch, age, ok := a.cache.Get(key); ok {
		logger.Errorf("aggregator: using expired cache key=%s age=%s", key, age)
		recordPath(pathStale)
		return a.normalize(batch, symbols), fmt.Errorf("%w, serving cache aged %s: %w", ErrFallback, age, cause)
	}
	logger.Infof("aggregator: generating synthesized crypto data for %s", strings.Join(symbols, ","))
	recordPath(pathSynthesized)
	return a.synth.ForBatch(symbols), fmt.Errorf("%w, serving synthesized data: %w", ErrFallback, cause)
}

func (a *Aggregator) fetch(ctx context.Context, name string, p market.Provider, source market.Source, key string, symbols []string) ([]market.Datum, error) {
	if p == nil {
		return nil, errors.New("provider not configured")
	}
	logger := logx.WithContext(ctx)
	ids := a.mapper.MapSymbols(p.Kind(), symbols)
	if len(ids) == 0 {
		logger.Infof("aggregator: no %s ids for %s", name, strings.Join(symbols, ","))
		return nil, errNoProviderIDs
	}
	quotes, err := p.Quotes(ctx, ids)
	if err != nil {
		logger.Errorf("aggregator: fetch from %s failed: %v", name, err)
		return nil, err
	}
	batch := market.Batch{Provider: p.Kind(), Source: source, Quotes: quotes}
	storedAt := a.now()
	a.cache.SetAt(key, batch, storedAt)
	a.storeMirror(ctx, key, batch, storedAt)

	data := a.normalize(batch, symbols)
	a.persist(ctx, name, data)
	logger.Infof("aggregator: fetched %d quotes from %s", len(quotes), name)
	return data, nil
}

func (a *Aggregator) normalize(batch market.Batch, symbols []string) []market.Datum {
	n := market.Normalizer{Mapper: a.mapper, Synth: a.synth, Now: a.now}
	return n.Normalize(batch, symbols)
}

func (a *Aggregator) loadMirror(ctx context.Context, key string) (market.Batch, bool) {
	if a.mirror == nil {
		return market.Batch{}, false
	}
	batch, storedAt, ok, err := a.mirror.Load(ctx, key)
	if err != nil {
		logx.WithContext(ctx).Errorf("aggregator: load mirror key=%s err=%v", key, err)
		return market.Batch{}, false
	}
	if !ok || a.now().Sub(storedAt) >= a.freshness {
		return market.Batch{}, false
	}
	a.cache.SetAt(key, batch, storedAt)
	return batch, true
}

func (a *Aggregator) storeMirror(ctx context.Context, key string, batch market.Batch, storedAt time.Time) {
	if a.mirror == nil {
		return
	}
	if err := a.mirror.Store(ctx, key, batch, storedAt); err != nil {
		logx.WithContext(ctx).Errorf("aggregator: store mirror key=%s err=%v", key, err)
	}
}

func (a *Aggregator) persist(ctx context.Context, provider string, data []market.Datum) {
	if a.persistence == nil {
		return
	}
	live := make([]market.Datum, 0, len(data))
	for _, d := range data {
		if !d.Synthesized() {
			live = append(live, d)
		}
	}
	if len(live) == 0 {
		return
	}
	if err := a.persistence.RecordBatch(ctx, provider, live); err != nil {
		logx.WithContext(ctx).Errorf("aggregator: persist batch provider=%s err=%v", provider, err)
	}
}
