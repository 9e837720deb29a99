package hyperliquid

import (
	"encoding/json"
	"fmt"
)

// InfoRequest is the shared envelope for Hyperliquid info endpoint requests.
type InfoRequest struct {
	Type string      `json:"type"`
	Req  interface{} `json:"req,omitempty"`
}

// MetaAndAssetCtxsResponse contains market meta data and per-asset contexts.
type MetaAndAssetCtxsResponse struct {
	Universe  []UniverseEntry
	AssetCtxs []AssetCtx
}

// UniverseEntry enumerates tradable assets on Hyperliquid.
type UniverseEntry struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
	IsDelisted bool   `json:"isDelisted"`
}

// AssetCtx holds per-symbol market context. Hyperliquid encodes numbers as strings.
type AssetCtx struct {
	PrevDayPx  string `json:"prevDayPx"`
	DayNtlVlm  string `json:"dayNtlVlm"`
	DayBaseVlm string `json:"dayBaseVlm"`
	MarkPx     string `json:"markPx"`
	MidPx      string `json:"midPx"`
}

// UnmarshalJSON accepts both the documented [meta, ctxs] tuple and the
// single-object form.
func (m *MetaAndAssetCtxsResponse) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch len(raw) {
	case 0:
		return fmt.Errorf("unexpected metaAndAssetCtxs payload: empty array")
	case 1:
		var meta struct {
			Universe  []UniverseEntry `json:"universe"`
			AssetCtxs []AssetCtx      `json:"assetCtxs"`
		}
		if err := json.Unmarshal(raw[0], &meta); err != nil {
			return err
		}
		m.Universe = meta.Universe
		m.AssetCtxs = meta.AssetCtxs
	default:
		var meta struct {
			Universe []UniverseEntry `json:"universe"`
		}
		if err := json.Unmarshal(raw[0], &meta); err != nil {
			return err
		}
		var assetCtxs []AssetCtx
		if err := json.Unmarshal(raw[1], &assetCtxs); err != nil {
			return err
		}
		m.Universe = meta.Universe
		m.AssetCtxs = assetCtxs
	}
	return nil
}

// AllMidsResponse maps symbols to their current mid prices.
type AllMidsResponse map[string]string
