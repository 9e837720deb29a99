package cache

import (
	"strings"
	"time"

	"marketboard/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "marketboard"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Price keys -------------------------------------------------------------

// PriceLatestKey returns the latest price key without provider scoping.
func PriceLatestKey(symbol string) string {
	return formatKey("price", "latest", symbol)
}

// PriceLatestByProviderKey returns the latest price key scoped by provider.
func PriceLatestByProviderKey(provider, symbol string) string {
	return formatKey("price", "latest", provider, symbol)
}

// CryptoPricesKey holds the provider:symbol -> price map.
func CryptoPricesKey() string {
	return formatKey("crypto_prices")
}

// --- Response cache mirror ---------------------------------------------------

// QuoteBatchKey stores one provider batch under the response-cache key.
func QuoteBatchKey(cacheKey string) string {
	return formatKey("quotes", cacheKey)
}

// --- TTL helpers --------------------------------------------------------------

// PriceTTL returns short-lived TTL for individual price keys.
func PriceTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// CryptoPricesTTL returns the TTL for bundled prices.
func CryptoPricesTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// QuoteBatchTTL keeps mirrored batches well past the freshness window so
// they can still serve as a stale fallback.
func QuoteBatchTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLLong, 2) // ~600s when long=300s
}
