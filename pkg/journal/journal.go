package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"marketboard/pkg/poller"
)

// PollRecord captures the outcome of one completed poll for audit.
type PollRecord struct {
	Timestamp     time.Time      `json:"timestamp"`
	Sequence      int            `json:"sequence"`
	APIStatus     string         `json:"api_status"`
	HasError      bool           `json:"has_error"`
	RetryCount    int            `json:"retry_count"`
	IsStale       bool           `json:"is_stale"`
	LiveDataCount int            `json:"live_data_count"`
	MockDataCount int            `json:"mock_data_count"`
	Prices        map[string]any `json:"prices,omitempty"`
}

// Writer persists poll records to a directory as JSON files.
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// FromState summarises a poller snapshot.
func FromState(state poller.State) *PollRecord {
	rec := &PollRecord{
		APIStatus:     string(state.APIStatus),
		HasError:      state.HasError,
		RetryCount:    state.RetryCount,
		IsStale:       state.IsStale,
		LiveDataCount: state.LiveDataCount,
		MockDataCount: state.MockDataCount,
		Prices:        make(map[string]any, len(state.Data)),
	}
	for _, d := range state.Data {
		rec.Prices[d.Symbol] = map[string]any{
			"price":  d.Price,
			"pct24h": d.ChangePercent24h,
			"source": d.Source,
		}
	}
	return rec
}

// WritePoll writes a record to a timestamped JSON file.
func (w *Writer) WritePoll(rec *PollRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.Sequence = w.seq
	name := fmt.Sprintf("poll_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Observer returns a poller subscription that journals every completed poll.
func (w *Writer) Observer() func(poller.State) {
	return func(state poller.State) {
		if state.IsLoading {
			return
		}
		if _, err := w.WritePoll(FromState(state)); err != nil {
			logx.Errorf("journal: write poll record: %v", err)
		}
	}
}
