// Package synth fabricates plausible market data for fallback paths.
// Nothing here touches the network or any cache, so it is always available.
package synth

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"marketboard/pkg/market"
)

const (
	SparklineLength = 20
	sparklineBase   = 100.0
	sparklineFloor  = 95.0
	sparklineCeil   = 105.0
)

type baseline struct {
	price  float64
	change float64
}

var cryptoBaselines = map[string]baseline{
	"BTC":   {43250, 2.1},
	"ETH":   {2239, -1.23},
	"SOL":   {98.45, 3.7},
	"TRX":   {0.1234, -1.2},
	"ADA":   {0.45, 1.8},
	"DOT":   {7.23, -2.1},
	"MATIC": {0.92, 4.2},
	"DOGE":  {0.08, 5.3},
	"LTC":   {72.34, -0.8},
	"LINK":  {14.56, 2.9},
}

type traditional struct {
	symbol      string
	price       float64
	priceJitter float64
	change      float64
	changeJit   float64
}

var traditionalBaselines = []traditional{
	{"DJ30", 42229.55, 200, 1.11, 0.8},
	{"EURUSD", 1.15172, 0.02, 0.17, 0.2},
	{"OIL", 73.99, 4, 0.07, 1},
	{"GOLD", 3367.97, 40, -0.08, 0.4},
}

// Generator produces synthesized Datum values. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	now    func() time.Time
	mapper *market.Mapper
}

// Option customises a Generator.
type Option func(*Generator)

// WithSeed makes output reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithRand injects a random source.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rnd = r
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithMapper overrides the display-name table.
func WithMapper(m *market.Mapper) Option {
	return func(g *Generator) {
		if m != nil {
			g.mapper = m
		}
	}
}

// New constructs a Generator seeded from the wall clock unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		mapper: market.DefaultMapper(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// float returns a value in [0,1). Callers must hold g.mu.
func (g *Generator) float() float64 {
	return g.rnd.Float64()
}

// Sparkline builds an illustrative 20-point trend series around 100. It is
// not price history: noise, a position-weighted trend and late momentum are
// accumulated and clamped to [95,105].
func (g *Generator) Sparkline(changePct float64) []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sparkline(changePct)
}

func (g *Generator) sparkline(changePct float64) []float64 {
	sign := 0.0
	switch {
	case changePct > 0:
		sign = 1
	case changePct < 0:
		sign = -1
	}
	magnitude := math.Abs(changePct * 0.5)

	points := make([]float64, SparklineLength)
	value := sparklineBase
	for i := 0; i < SparklineLength; i++ {
		noise := (g.float() - 0.5) * 2
		trend := float64(i) / SparklineLength * sign * magnitude
		momentum := 0.0
		if i > SparklineLength/2 {
			momentum = sign * 0.5
		}
		value += noise + trend + momentum
		value = math.Max(sparklineFloor, math.Min(sparklineCeil, value))
		points[i] = value
	}
	return points
}

// ForSymbol returns a jittered Datum from the per-symbol baseline. Unknown
// symbols get a neutral baseline of price 1 and no change.
func (g *Generator) ForSymbol(symbol string) market.Datum {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forSymbol(symbol)
}

func (g *Generator) forSymbol(symbol string) market.Datum {
	base, ok := cryptoBaselines[symbol]
	if !ok {
		base = baseline{price: 1, change: 0}
	}
	price := base.price * (1 + (g.float()-0.5)*0.2/100)
	pct := base.change + (g.float()-0.5)*1
	volume := g.float() * 1e9
	marketCap := price * g.float() * 1e9
	return market.Datum{
		Symbol:           symbol,
		Name:             g.mapper.Meta(symbol).Name,
		Price:            price,
		Change24h:        price * pct / 100,
		ChangePercent24h: pct,
		Volume24h:        volume,
		MarketCap:        marketCap,
		SparklineData:    g.sparkline(pct),
		LastUpdated:      g.now(),
		Source:           market.SourceSynthesized,
	}
}

// ForBatch maps ForSymbol over symbols, keeping order.
func (g *Generator) ForBatch(symbols []string) []market.Datum {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]market.Datum, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, g.forSymbol(symbol))
	}
	return out
}

// TraditionalAssets returns the index, forex and commodity rows with small
// per-call randomization. Volume and market cap do not apply and are zero.
func (g *Generator) TraditionalAssets() []market.Datum {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	out := make([]market.Datum, 0, len(traditionalBaselines))
	for _, t := range traditionalBaselines {
		price := t.price + (g.float()-0.5)*t.priceJitter
		pct := t.change + (g.float()-0.5)*t.changeJit
		out = append(out, market.Datum{
			Symbol:           t.symbol,
			Name:             g.mapper.Meta(t.symbol).Name,
			Price:            price,
			Change24h:        price * pct / 100,
			ChangePercent24h: pct,
			SparklineData:    g.sparkline(t.change),
			LastUpdated:      now,
			Source:           market.SourceSynthesized,
		})
	}
	return out
}

// TraditionalSymbols lists the tickers TraditionalAssets produces.
func TraditionalSymbols() []string {
	out := make([]string, len(traditionalBaselines))
	for i, t := range traditionalBaselines {
		out[i] = t.symbol
	}
	return out
}

// Static returns the fixed last-resort dataset. It uses no randomness.
func (g *Generator) Static() []market.Datum {
	now := g.now()
	rows := []market.Datum{
		{Symbol: "DJ30", Name: "Dow Jones 30", Price: 42429.12, Change24h: 234.56, ChangePercent24h: 0.56,
			SparklineData: []float64{100, 101, 100, 102, 101, 103, 102, 104, 103, 105}},
		{Symbol: "BTC", Name: "Bitcoin", Price: 67250.00, Change24h: -1250.50, ChangePercent24h: -1.83,
			Volume24h: 28_500_000_000, MarketCap: 1_320_000_000_000,
			SparklineData: []float64{100, 102, 104, 103, 105, 107, 106, 108, 107, 109}},
		{Symbol: "ETH", Name: "Ethereum", Price: 2239.45, Change24h: -27.55, ChangePercent24h: -1.23,
			Volume24h: 15_400_000_000, MarketCap: 269_000_000_000,
			SparklineData: []float64{100, 99, 98, 97, 99, 98, 97, 96, 98, 97}},
		{Symbol: "SOL", Name: "Solana", Price: 98.45, Change24h: 3.52, ChangePercent24h: 3.7,
			Volume24h: 2_100_000_000, MarketCap: 44_000_000_000,
			SparklineData: []float64{100, 102, 104, 103, 105, 107, 106, 108, 107, 109}},
		{Symbol: "EURUSD", Name: "EUR/USD", Price: 1.08234, Change24h: 0.00123, ChangePercent24h: 0.11,
			SparklineData: []float64{100, 100.1, 100.05, 100.15, 100.08, 100.12, 100.07, 100.18, 100.11, 100.14}},
		{Symbol: "GOLD", Name: "Gold", Price: 2034.50, Change24h: 12.30, ChangePercent24h: 0.61,
			SparklineData: []float64{100, 101, 100.5, 101.5, 100.8, 101.2, 100.7, 101.8, 101.1, 101.4}},
	}
	for i := range rows {
		rows[i].LastUpdated = now
		rows[i].Source = market.SourceSynthesized
	}
	return rows
}
