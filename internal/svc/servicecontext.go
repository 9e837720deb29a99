package svc

import (
	"database/sql"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "marketboard/internal/cache"
	"marketboard/internal/config"
	marketpersist "marketboard/internal/persistence/market"
	"marketboard/pkg/aggregator"
	"marketboard/pkg/journal"
	marketpkg "marketboard/pkg/market"
	_ "marketboard/pkg/market/exchanges/coingecko"
	_ "marketboard/pkg/market/exchanges/hyperliquid"
	"marketboard/pkg/poller"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	Selection       marketpkg.Selection

	Aggregator *aggregator.Aggregator
	Poller     *poller.Poller
	Journal    *journal.Writer

	// Optional stores, only set when configured.
	DBConn      sqlx.SqlConn
	Redis       *redis.Redis
	Persistence marketpkg.Persistence
	Mirror      marketpkg.CacheMirror
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{Config: c}

	marketCfg := c.Market.Value
	if marketCfg == nil {
		marketCfg = marketpkg.MustLoad()
	}
	providers, err := marketCfg.BuildProviders()
	if err != nil {
		log.Fatalf("failed to build market providers: %v", err)
	}
	sel, err := marketCfg.Select(providers)
	if err != nil {
		log.Fatalf("failed to select market providers: %v", err)
	}
	svc.MarketConfig = marketCfg
	svc.MarketProviders = providers
	svc.Selection = sel

	ttl := cachekeys.NewTTLSet(c.TTL)
	var priceCache marketpersist.PriceCache
	if c.Redis.Host != "" {
		rds := redis.MustNewRedis(c.Redis)
		svc.Redis = rds
		svc.Mirror = cachekeys.NewQuoteMirror(rds, ttl)
		priceCache = gocache.New(gocache.ClusterConf{{RedisConf: c.Redis, Weight: 100}},
			syncx.NewSingleFlight(), gocache.NewStat("marketboard"), sql.ErrNoRows)
	}
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
	}
	svc.Persistence = marketpersist.NewService(marketpersist.Config{
		SQLConn: svc.DBConn,
		Cache:   priceCache,
		TTL:     ttl,
	})

	opts := []aggregator.Option{}
	if svc.Mirror != nil {
		opts = append(opts, aggregator.WithMirror(svc.Mirror))
	}
	if svc.Persistence != nil {
		opts = append(opts, aggregator.WithPersistence(svc.Persistence))
	}
	svc.Aggregator = aggregator.NewFromConfig(marketCfg, sel, opts...)

	svc.Poller = poller.New(svc.Aggregator, poller.Config{
		UpdateInterval: c.Poll.UpdateInterval(),
		AutoStart:      c.Poll.AutoStart,
	})
	if c.Poll.JournalDir != "" {
		svc.Journal = journal.NewWriter(c.Poll.JournalDir)
		svc.Poller.Subscribe(svc.Journal.Observer())
	}
	return svc
}
