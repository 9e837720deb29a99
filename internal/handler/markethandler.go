package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"marketboard/internal/svc"
)

// MarketDataHandler serves the poller snapshot. An empty dataset triggers a
// synchronous refresh so the first caller never receives an empty list.
func MarketDataHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := svcCtx.Poller.State()
		if len(state.Data) == 0 {
			state = svcCtx.Poller.Refresh(r.Context())
		}
		httpx.OkJsonCtx(r.Context(), w, state)
	}
}

func RefreshHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OkJsonCtx(r.Context(), w, svcCtx.Poller.Refresh(r.Context()))
	}
}

func HealthHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OkJsonCtx(r.Context(), w, svcCtx.Aggregator.CheckHealth(r.Context()))
	}
}

func CacheStatsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OkJsonCtx(r.Context(), w, svcCtx.Aggregator.CacheStats())
	}
}

func ClearCacheHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svcCtx.Aggregator.ClearCache()
		httpx.OkJsonCtx(r.Context(), w, svcCtx.Aggregator.CacheStats())
	}
}
