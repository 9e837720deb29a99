package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"marketboard/pkg/confkit"
)

const (
	DefaultFreshness       = 60 * time.Second
	DefaultHealthTimeout   = 3 * time.Second
	DefaultDegradedLatency = 1500 * time.Millisecond
	DefaultAttemptTimeout  = 8 * time.Second
	DefaultRateLimit       = 10 * time.Second
	DefaultMaxRetries      = 2
)

// DefaultCryptoSymbols is the crypto watchlist used when config omits one.
var DefaultCryptoSymbols = []string{"BTC", "ETH", "SOL", "TRX", "ADA", "DOT", "MATIC"}

// Config describes the market data providers and acquisition policy.
type Config struct {
	Default   string                     `yaml:"default"`
	Alternate string                     `yaml:"alternate"`
	Symbols   []string                   `yaml:"symbols"`
	Cache     CacheConfig                `yaml:"cache"`
	Health    HealthConfig               `yaml:"health"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// CacheConfig controls the response cache freshness window.
type CacheConfig struct {
	FreshnessRaw string        `yaml:"freshness"`
	Freshness    time.Duration `yaml:"-"`
}

// HealthConfig controls the provider liveness probe.
type HealthConfig struct {
	TimeoutRaw         string        `yaml:"timeout"`
	Timeout            time.Duration `yaml:"-"`
	DegradedLatencyRaw string        `yaml:"degraded_latency"`
	DegradedLatency    time.Duration `yaml:"-"`
}

// ProviderConfig represents configuration for a single market provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	UserAgent string `yaml:"user_agent"`

	TimeoutRaw   string        `yaml:"timeout"`
	Timeout      time.Duration `yaml:"-"`
	RateLimitRaw string        `yaml:"rate_limit"`
	RateLimit    time.Duration `yaml:"-"`
	MaxRetries   int           `yaml:"max_retries"`
}

// ProviderBuilder constructs a Provider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Provider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a market provider constructor.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/market.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.Default = strings.TrimSpace(os.ExpandEnv(c.Default))
	c.Alternate = strings.TrimSpace(os.ExpandEnv(c.Alternate))

	symbols := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		if s = normalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		symbols = append(symbols, DefaultCryptoSymbols...)
	}
	c.Symbols = symbols

	var err error
	if c.Cache.Freshness, err = parseDuration("cache.freshness", c.Cache.FreshnessRaw, DefaultFreshness); err != nil {
		return err
	}
	if c.Health.Timeout, err = parseDuration("health.timeout", c.Health.TimeoutRaw, DefaultHealthTimeout); err != nil {
		return err
	}
	if c.Health.DegradedLatency, err = parseDuration("health.degraded_latency", c.Health.DegradedLatencyRaw, DefaultDegradedLatency); err != nil {
		return err
	}

	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		if err := provider.parseDurations(name); err != nil {
			return err
		}
		if provider.MaxRetries == 0 {
			provider.MaxRetries = DefaultMaxRetries
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.UserAgent = strings.TrimSpace(os.ExpandEnv(p.UserAgent))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.RateLimitRaw = strings.TrimSpace(os.ExpandEnv(p.RateLimitRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	var err error
	if p.Timeout, err = parseDuration("market provider "+name+": timeout", p.TimeoutRaw, DefaultAttemptTimeout); err != nil {
		return err
	}
	if p.RateLimitRaw == "0" {
		p.RateLimit = 0
		return nil
	}
	if p.RateLimit, err = parseDuration("market provider "+name+": rate_limit", p.RateLimitRaw, DefaultRateLimit); err != nil {
		return err
	}
	return nil
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(os.ExpandEnv(raw))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, d)
	}
	return d, nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("market config: default provider %q not defined", c.Default)
		}
	}
	if c.Alternate != "" {
		if _, ok := c.Providers[c.Alternate]; !ok {
			return fmt.Errorf("market config: alternate provider %q not defined", c.Alternate)
		}
		if c.Alternate == c.Default {
			return fmt.Errorf("market config: alternate provider must differ from default")
		}
	}
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
	}
	if p.MaxRetries < 1 {
		return fmt.Errorf("market config: provider %s max_retries must be at least 1", name)
	}
	return nil
}

// BuildProviders instantiates market data providers according to configuration.
func (c *Config) BuildProviders() (map[string]Provider, error) {
	result := make(map[string]Provider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}
