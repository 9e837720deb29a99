package marketpersist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "marketboard/internal/cache"
	"marketboard/pkg/market"
)

// PriceCache is the part of go-zero's cache.Cache used for latest prices.
type PriceCache interface {
	GetCtx(ctx context.Context, key string, val any) error
	SetWithExpireCtx(ctx context.Context, key string, val any, expire time.Duration) error
	IsNotFound(err error) bool
}

var _ PriceCache = (gocache.Cache)(nil)

// Service records live quotes to Postgres and the Redis price keys.
type Service struct {
	sqlConn sqlx.SqlConn
	cache   PriceCache
	ttl     cachekeys.TTLSet
	now     func() time.Time
}

// Config enumerates dependencies required to persist market data.
type Config struct {
	SQLConn sqlx.SqlConn
	Cache   PriceCache
	TTL     cachekeys.TTLSet
}

// NewService wires a market persistence service. Returns nil when neither
// store is configured.
func NewService(cfg Config) market.Persistence {
	if cfg.SQLConn == nil && cfg.Cache == nil {
		return nil
	}
	return &Service{
		sqlConn: cfg.SQLConn,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
		now:     time.Now,
	}
}

const upsertPriceLatest = `
INSERT INTO public.price_latest (provider, symbol, price, ts_ms, raw, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (provider, symbol) DO UPDATE SET
    price = EXCLUDED.price,
    ts_ms = EXCLUDED.ts_ms,
    raw = EXCLUDED.raw,
    updated_at = NOW();`

// RecordBatch upserts one price_latest row per datum and refreshes the
// cached price keys. Synthesized rows are ignored.
func (s *Service) RecordBatch(ctx context.Context, provider string, data []market.Datum) error {
	if s == nil || len(data) == 0 {
		return nil
	}
	rows := make([]market.Datum, 0, len(data))
	for _, d := range data {
		if d.Synthesized() || strings.TrimSpace(d.Symbol) == "" {
			continue
		}
		rows = append(rows, d)
	}
	if len(rows) == 0 {
		return nil
	}

	if s.sqlConn != nil {
		err := s.sqlConn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
			for _, d := range rows {
				raw, err := json.Marshal(d)
				if err != nil {
					return fmt.Errorf("encode %s: %w", d.Symbol, err)
				}
				ts := d.LastUpdated
				if ts.IsZero() {
					ts = s.now()
				}
				if _, err := session.ExecCtx(ctx, upsertPriceLatest, provider, d.Symbol, d.Price, ts.UnixMilli(), string(raw)); err != nil {
					return fmt.Errorf("upsert %s: %w", d.Symbol, err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("marketpersist: record batch provider=%s: %w", provider, err)
		}
	}

	now := s.now().UTC()
	for _, d := range rows {
		s.cachePrice(ctx, provider, d.Symbol, d.Price, now)
	}
	s.updateCryptoPrices(ctx, provider, rows)
	return nil
}

func (s *Service) cachePrice(ctx context.Context, provider, symbol string, price float64, ts time.Time) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.PriceTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	payload := map[string]any{
		"price": price,
		"ts":    ts.UnixMilli(),
	}
	for _, key := range []string{
		cachekeys.PriceLatestByProviderKey(provider, symbol),
		cachekeys.PriceLatestKey(symbol),
	} {
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("marketpersist: cache price key=%s err=%v", key, err)
		}
	}
}

func (s *Service) updateCryptoPrices(ctx context.Context, provider string, rows []market.Datum) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.CryptoPricesTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.CryptoPricesKey()
	var payload map[string]float64
	if err := s.cache.GetCtx(ctx, key, &payload); err != nil && !s.cache.IsNotFound(err) {
		logx.WithContext(ctx).Errorf("marketpersist: load crypto prices key=%s err=%v", key, err)
		return
	}
	if payload == nil {
		payload = make(map[string]float64, len(rows))
	}
	for _, d := range rows {
		payload[fmt.Sprintf("%s:%s", provider, d.Symbol)] = d.Price
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache crypto prices key=%s err=%v", key, err)
	}
}
