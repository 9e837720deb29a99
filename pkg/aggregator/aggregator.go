// Package aggregator merges crypto and traditional market data behind a single
// call that always yields a complete dataset.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"marketboard/pkg/market"
	"marketboard/pkg/market/synth"
)

// ErrDegraded accompanies a complete dataset that contains fallback rows:
// expired cache entries, synthesized crypto data or a substituted path.
var ErrDegraded = errors.New("aggregator: degraded dataset")

// TraditionalSource supplies index, forex and commodity rows.
type TraditionalSource interface {
	TraditionalAssets(ctx context.Context) ([]market.Datum, error)
}

type synthTraditional struct{ gen *synth.Generator }

func (s synthTraditional) TraditionalAssets(context.Context) ([]market.Datum, error) {
	return s.gen.TraditionalAssets(), nil
}

// Aggregator orchestrates acquisition, caching and fallback.
type Aggregator struct {
	primary       market.Provider
	primaryName   string
	alternate     market.Provider
	alternateName string
	traditional   TraditionalSource

	symbols         []string
	freshness       time.Duration
	healthTimeout   time.Duration
	degradedLatency time.Duration

	cache       *market.ResponseCache[market.Batch]
	mirror      market.CacheMirror
	persistence market.Persistence
	mapper      *market.Mapper
	synth       *synth.Generator
	now         func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithAlternate adds a second upstream tried after the primary fails.
func WithAlternate(name string, p market.Provider) Option {
	return func(a *Aggregator) {
		a.alternate, a.alternateName = p, name
	}
}

// WithSymbols overrides the crypto watchlist.
func WithSymbols(symbols []string) Option {
	return func(a *Aggregator) {
		if len(symbols) > 0 {
			a.symbols = append([]string(nil), symbols...)
		}
	}
}

// WithFreshness sets how long a cached batch short-circuits the network.
func WithFreshness(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.freshness = d
		}
	}
}

// WithHealth sets the probe timeout and the latency above which the provider is degraded.
func WithHealth(timeout, degradedLatency time.Duration) Option {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.healthTimeout = timeout
		}
		if degradedLatency > 0 {
			a.degradedLatency = degradedLatency
		}
	}
}

// WithMirror shares the response cache through an external store.
func WithMirror(m market.CacheMirror) Option {
	return func(a *Aggregator) { a.mirror = m }
}

// WithPersistence records live batches.
func WithPersistence(p market.Persistence) Option {
	return func(a *Aggregator) { a.persistence = p }
}

// WithGenerator injects the synthesizer.
func WithGenerator(g *synth.Generator) Option {
	return func(a *Aggregator) {
		if g != nil {
			a.synth = g
		}
	}
}

// WithTraditionalSource replaces the synthesized traditional-asset path.
func WithTraditionalSource(s TraditionalSource) Option {
	return func(a *Aggregator) {
		if s != nil {
			a.traditional = s
		}
	}
}

// WithMapper overrides the ticker table.
func WithMapper(m *market.Mapper) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.mapper = m
		}
	}
}

// WithClock overrides the time source used for cache ages.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs an Aggregator around the primary provider.
func New(name string, primary market.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		primary:         primary,
		primaryName:     name,
		symbols:         append([]string(nil), market.DefaultCryptoSymbols...),
		freshness:       market.DefaultFreshness,
		healthTimeout:   market.DefaultHealthTimeout,
		degradedLatency: market.DefaultDegradedLatency,
		mapper:          market.DefaultMapper(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.synth == nil {
		a.synth = synth.New(synth.WithMapper(a.mapper), synth.WithClock(a.now))
	}
	if a.traditional == nil {
		a.traditional = synthTraditional{gen: a.synth}
	}
	a.cache = market.NewResponseCache[market.Batch](a.now)
	return a
}

// NewFromConfig wires an Aggregator from market configuration.
func NewFromConfig(cfg *market.Config, sel market.Selection, opts ...Option) *Aggregator {
	base := []Option{
		WithSymbols(cfg.Symbols),
		WithFreshness(cfg.Cache.Freshness),
		WithHealth(cfg.Health.Timeout, cfg.Health.DegradedLatency),
	}
	if sel.Alternate != nil {
		base = append(base, WithAlternate(sel.AlternateName, sel.Alternate))
	}
	return New(sel.PrimaryName, sel.Primary, append(base, opts...)...)
}

// Symbols returns the crypto watchlist.
func (a *Aggregator) Symbols() []string {
	return append([]string(nil), a.symbols...)
}

// GetAllMarketData runs the crypto and traditional paths concurrently and
// returns traditional rows followed by crypto rows. A path that fails or
// panics is replaced by its synthesized equivalent without affecting the
// other. The returned slice is never empty; a non-nil error wraps
// ErrDegraded and signals that some rows are fallback data.
func (a *Aggregator) GetAllMarketData(ctx context.Context) ([]market.Datum, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logx.WithContext(ctx)

	var (
		crypto, traditional       []market.Datum
		cryptoErr, traditionalErr error
		cryptoDone, tradDone      bool
	)
	group := threading.NewRoutineGroup()
	group.RunSafe(func() {
		crypto, cryptoErr = a.CryptoData(ctx, a.symbols)
		cryptoDone = true
	})
	group.RunSafe(func() {
		traditional, traditionalErr = a.traditional.TraditionalAssets(ctx)
		tradDone = true
	})
	group.Wait()

	var failures []string
	cryptoMissing := !cryptoDone || len(crypto) == 0
	if cryptoMissing || cryptoErr != nil {
		failures = append(failures, fmt.Sprintf("crypto: %v", describe(cryptoDone, cryptoErr)))
	}
	if cryptoMissing {
		sub, ok := safely(func() []market.Datum { return a.synth.ForBatch(a.symbols) })
		if !ok {
			return a.lastResort(ctx)
		}
		crypto = sub
		recordPath(pathSubstituted)
	}
	if !tradDone || traditionalErr != nil || len(traditional) == 0 {
		failures = append(failures, fmt.Sprintf("traditional: %v", describe(tradDone, traditionalErr)))
		sub, ok := safely(a.synth.TraditionalAssets)
		if !ok {
			return a.lastResort(ctx)
		}
		traditional = sub
	}

	all := make([]market.Datum, 0, len(traditional)+len(crypto))
	all = append(all, traditional...)
	all = append(all, crypto...)
	logger.Infof("aggregator: loaded %d market items", len(all))
	if len(failures) > 0 {
		logger.Errorf("aggregator: serving fallback data (%s)", strings.Join(failures, "; "))
		return all, fmt.Errorf("%w: %s", ErrDegraded, strings.Join(failures, "; "))
	}
	return all, nil
}

func (a *Aggregator) lastResort(ctx context.Context) ([]market.Datum, error) {
	logx.WithContext(ctx).Errorf("aggregator: substitution failed, serving static dataset")
	recordPath(pathStatic)
	return a.synth.Static(), fmt.Errorf("%w: static fallback", ErrDegraded)
}

// ClearCache drops every cached batch.
func (a *Aggregator) ClearCache() {
	a.cache.Clear()
	logx.Info("aggregator: response cache cleared")
}

// CacheStats reports the response cache contents.
func (a *Aggregator) CacheStats() market.CacheStats {
	return a.cache.Stats()
}

func describe(done bool, err error) string {
	switch {
	case !done:
		return "panicked"
	case err != nil:
		return err.Error()
	default:
		return "empty result"
	}
}

func safely(fn func() []market.Datum) (out []market.Datum, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = nil, false
		}
	}()
	out = fn()
	return out, len(out) > 0
}
