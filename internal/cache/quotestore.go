package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"marketboard/pkg/market"
)

// KV is the subset of go-zero's redis client used by QuoteMirror.
type KV interface {
	GetCtx(ctx context.Context, key string) (string, error)
	SetexCtx(ctx context.Context, key, value string, seconds int) error
}

var _ KV = (*redis.Redis)(nil)

type mirroredBatch struct {
	Batch      market.Batch `msgpack:"batch"`
	StoredAtMs int64        `msgpack:"stored_at_ms"`
}

// QuoteMirror shares response-cache batches between processes through Redis.
type QuoteMirror struct {
	kv  KV
	ttl time.Duration
}

// NewQuoteMirror returns nil when kv is nil so callers can pass it straight
// to aggregator.WithMirror.
func NewQuoteMirror(kv KV, ttl TTLSet) market.CacheMirror {
	if kv == nil {
		return nil
	}
	return &QuoteMirror{kv: kv, ttl: QuoteBatchTTL(ttl)}
}

// Load fetches the batch stored under the response-cache key.
func (m *QuoteMirror) Load(ctx context.Context, key string) (market.Batch, time.Time, bool, error) {
	raw, err := m.kv.GetCtx(ctx, QuoteBatchKey(key))
	if err != nil {
		return market.Batch{}, time.Time{}, false, fmt.Errorf("quote mirror: get %s: %w", key, err)
	}
	if raw == "" {
		return market.Batch{}, time.Time{}, false, nil
	}
	var payload mirroredBatch
	if err := msgpack.Unmarshal([]byte(raw), &payload); err != nil {
		return market.Batch{}, time.Time{}, false, fmt.Errorf("quote mirror: decode %s: %w", key, err)
	}
	return payload.Batch, time.UnixMilli(payload.StoredAtMs), true, nil
}

// Store writes the batch with its original timestamp.
func (m *QuoteMirror) Store(ctx context.Context, key string, batch market.Batch, storedAt time.Time) error {
	data, err := msgpack.Marshal(mirroredBatch{Batch: batch, StoredAtMs: storedAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("quote mirror: encode %s: %w", key, err)
	}
	seconds := int(m.ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	if err := m.kv.SetexCtx(ctx, QuoteBatchKey(key), string(data), seconds); err != nil {
		return fmt.Errorf("quote mirror: set %s: %w", key, err)
	}
	return nil
}
