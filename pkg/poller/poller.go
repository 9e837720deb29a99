// Package poller keeps a market dataset current on a fixed interval and
// exposes its state to consumers.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"marketboard/pkg/aggregator"
	"marketboard/pkg/market"
)

// DefaultUpdateInterval is used when Config.UpdateInterval is unset.
const DefaultUpdateInterval = 120 * time.Second

// Source is the dataset producer polled on every tick.
type Source interface {
	GetAllMarketData(ctx context.Context) ([]market.Datum, error)
	CheckHealth(ctx context.Context) aggregator.Health
}

// Config controls scheduling.
type Config struct {
	UpdateInterval time.Duration
	// AutoStart makes Start fetch immediately and schedule ticks. When false
	// the dataset only changes through Refresh.
	AutoStart bool
}

// DefaultConfig mirrors the polling defaults: two minutes, auto start.
func DefaultConfig() Config {
	return Config{UpdateInterval: DefaultUpdateInterval, AutoStart: true}
}

// State is the snapshot handed to consumers.
type State struct {
	Data          []market.Datum    `json:"data"`
	IsLoading     bool              `json:"isLoading"`
	HasError      bool              `json:"hasError"`
	APIStatus     aggregator.Status `json:"apiStatus"`
	LastUpdated   *time.Time        `json:"lastUpdated"`
	RetryCount    int               `json:"retryCount"`
	LiveDataCount int               `json:"liveDataCount"`
	MockDataCount int               `json:"mockDataCount"`
	IsStale       bool              `json:"isStale"`
}

// Poller owns the repeating timer and the current dataset.
//
// A scheduled tick and a Refresh may overlap; whichever finishes last
// overwrites the dataset.
type Poller struct {
	source Source
	cfg    Config
	now    func() time.Time

	mu          sync.Mutex
	data        []market.Datum
	loading     int
	hasError    bool
	apiStatus   aggregator.Status
	lastUpdated time.Time
	dataAt      time.Time
	retryCount  int

	// generation is bumped by Stop; results from an older generation are dropped.
	generation uint64
	stopped    bool
	cancel     context.CancelFunc

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// Option customises a Poller.
type Option func(*Poller)

// WithClock overrides the time source used for timestamps and staleness.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs an idle Poller.
func New(source Source, cfg Config, opts ...Option) *Poller {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	p := &Poller{
		source:    source,
		cfg:       cfg,
		now:       time.Now,
		apiStatus: aggregator.StatusHealthy,
		subs:      make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the effective update interval.
func (p *Poller) Interval() time.Duration {
	return p.cfg.UpdateInterval
}

// Start fetches once and then on every interval tick until ctx is done or
// Stop is called. It is a no-op when AutoStart is false or the loop is
// already running.
func (p *Poller) Start(ctx context.Context) {
	if !p.cfg.AutoStart {
		return
	}
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = false
	gen := p.generation
	p.mu.Unlock()

	threading.GoSafe(func() {
		p.loop(runCtx, gen)
	})
}

// Stop cancels the timer. Results of calls still in flight are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.stopped = true
	p.generation++
}

// Refresh performs one out-of-band poll without touching the timer and
// returns the resulting state.
func (p *Poller) Refresh(ctx context.Context) State {
	p.mu.Lock()
	gen, stopped := p.generation, p.stopped
	p.mu.Unlock()
	if !stopped {
		p.poll(ctx, gen)
	}
	return p.State()
}

// Subscribe registers fn to receive every state change. The returned func
// removes the subscription.
func (p *Poller) Subscribe(fn func(State)) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

// State returns a snapshot of the current dataset and flags.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) loop(ctx context.Context, gen uint64) {
	p.poll(ctx, gen)
	ticker := time.NewTicker(p.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, gen)
		}
	}
}

func (p *Poller) poll(ctx context.Context, gen uint64) {
	if !p.begin(gen) {
		return
	}

	var (
		data   []market.Datum
		err    error
		health aggregator.Health
	)
	group := threading.NewRoutineGroup()
	group.RunSafe(func() {
		data, err = p.source.GetAllMarketData(ctx)
	})
	group.RunSafe(func() {
		health = p.source.CheckHealth(ctx)
	})
	group.Wait()

	p.finish(gen, data, err, health)
}

func (p *Poller) begin(gen uint64) bool {
	p.mu.Lock()
	if !p.liveLocked(gen) {
		p.mu.Unlock()
		return false
	}
	p.loading++
	state := p.snapshotLocked()
	p.mu.Unlock()
	p.publish(state)
	return true
}

func (p *Poller) finish(gen uint64, data []market.Datum, err error, health aggregator.Health) {
	p.mu.Lock()
	if p.loading > 0 {
		p.loading--
	}
	if !p.liveLocked(gen) {
		p.mu.Unlock()
		return
	}
	if health.Status != "" {
		p.apiStatus = health.Status
	}
	if err == nil && len(data) > 0 {
		p.data = data
		p.hasError = false
		p.retryCount = 0
		p.lastUpdated = p.now()
		p.dataAt = p.lastUpdated
		pollsTotal.WithLabelValues(outcomeOK).Inc()
	} else {
		if len(p.data) == 0 && len(data) > 0 {
			p.data = data
			p.dataAt = p.now()
		}
		p.hasError = true
		p.retryCount++
		pollsTotal.WithLabelValues(outcomeError).Inc()
		logx.Errorf("poller: refresh failed retry=%d err=%v", p.retryCount, err)
	}
	state := p.snapshotLocked()
	p.mu.Unlock()

	liveItems.Set(float64(state.LiveDataCount))
	mockItems.Set(float64(state.MockDataCount))
	p.publish(state)
}

func (p *Poller) liveLocked(gen uint64) bool {
	return !p.stopped && gen == p.generation
}

func (p *Poller) snapshotLocked() State {
	s := State{
		Data:       append([]market.Datum(nil), p.data...),
		IsLoading:  p.loading > 0,
		HasError:   p.hasError,
		APIStatus:  p.apiStatus,
		RetryCount: p.retryCount,
	}
	if !p.lastUpdated.IsZero() {
		ts := p.lastUpdated
		s.LastUpdated = &ts
	}
	// Staleness follows the age of the rows on display, which may be a
	// fallback set adopted before any clean poll.
	if !p.dataAt.IsZero() {
		s.IsStale = p.now().Sub(p.dataAt) > p.cfg.UpdateInterval
	}
	for _, d := range p.data {
		if d.Synthesized() {
			s.MockDataCount++
		} else {
			s.LiveDataCount++
		}
	}
	return s
}

func (p *Poller) publish(state State) {
	p.subMu.Lock()
	fns := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}
