package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"marketboard/pkg/fetch"
)

const defaultBaseURL = "https://api.hyperliquid.xyz/info"

// ErrSymbolNotFound indicates that the requested symbol is not listed.
var ErrSymbolNotFound = errors.New("hyperliquid: symbol not found")

// Client wraps access to the Hyperliquid info endpoint.
type Client struct {
	baseURL string
	http    *fetch.Client

	symbolsMu        sync.RWMutex
	symbolIndex      map[string]string
	assetCtxBySymbol map[string]AssetCtx
	universeMeta     map[string]UniverseEntry
}

// Option configures a new Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL      string
	fetchOptions []fetch.Option
}

// WithBaseURL overrides the default info endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithFetchOptions passes options to the underlying fetch client.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(c *clientConfig) {
		c.fetchOptions = append(c.fetchOptions, opts...)
	}
}

// NewClient constructs a Hyperliquid API client.
func NewClient(opts ...Option) *Client {
	cfg := &clientConfig{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		baseURL: cfg.baseURL,
		http:    fetch.NewClient("hyperliquid", cfg.fetchOptions...),
	}
}

// Ping sends one unretried allMids request.
func (c *Client) Ping(ctx context.Context) error {
	var mids AllMidsResponse
	if err := c.http.Once(ctx, http.MethodPost, c.baseURL, InfoRequest{Type: "allMids"}, &mids); err != nil {
		return fmt.Errorf("hyperliquid: ping: %w", err)
	}
	return nil
}

func (c *Client) refreshSymbolDirectory(ctx context.Context) error {
	var payload MetaAndAssetCtxsResponse
	if err := c.http.PostJSON(ctx, c.baseURL, InfoRequest{Type: "metaAndAssetCtxs"}, &payload); err != nil {
		return fmt.Errorf("hyperliquid: metaAndAssetCtxs: %w", err)
	}

	index := make(map[string]string, len(payload.Universe))
	assetCtx := make(map[string]AssetCtx, len(payload.AssetCtxs))
	universe := make(map[string]UniverseEntry, len(payload.Universe))
	for i, entry := range payload.Universe {
		canonical := strings.TrimSpace(entry.Name)
		if canonical == "" {
			continue
		}
		key := normalizeKey(canonical)
		if key == "" {
			continue
		}
		index[key] = canonical
		if i < len(payload.AssetCtxs) {
			assetCtx[canonical] = payload.AssetCtxs[i]
		}
		universe[canonical] = entry
	}

	c.symbolsMu.Lock()
	c.symbolIndex = index
	c.assetCtxBySymbol = assetCtx
	c.universeMeta = universe
	c.symbolsMu.Unlock()
	return nil
}

func (c *Client) assetCtxFromCache(symbol string) (string, AssetCtx, UniverseEntry, bool) {
	key := normalizeKey(symbol)
	if key == "" {
		return "", AssetCtx{}, UniverseEntry{}, false
	}
	c.symbolsMu.RLock()
	defer c.symbolsMu.RUnlock()
	canonical, ok := c.symbolIndex[key]
	if !ok {
		return "", AssetCtx{}, UniverseEntry{}, false
	}
	ctxData, ok := c.assetCtxBySymbol[canonical]
	return canonical, ctxData, c.universeMeta[canonical], ok
}

func normalizeKey(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) > 4 && strings.EqualFold(trimmed[len(trimmed)-4:], "USDT") {
		trimmed = trimmed[:len(trimmed)-4]
	}
	return strings.ToUpper(trimmed)
}
