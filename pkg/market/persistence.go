package market

import (
	"context"
	"time"
)

// Persistence hooks allow live batches to be recorded in external stores.
type Persistence interface {
	// RecordBatch persists the latest live readings for a provider.
	RecordBatch(ctx context.Context, provider string, data []Datum) error
}

// CacheMirror shares response-cache entries across processes.
type CacheMirror interface {
	// Load returns the mirrored batch for key and the time it was stored.
	Load(ctx context.Context, key string) (Batch, time.Time, bool, error)
	// Store writes batch under key.
	Store(ctx context.Context, key string, batch Batch, storedAt time.Time) error
}
