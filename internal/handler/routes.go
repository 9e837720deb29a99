package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/rest"

	"marketboard/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/market",
				Handler: MarketDataHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/market/refresh",
				Handler: RefreshHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/market/health",
				Handler: HealthHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/market/cache",
				Handler: CacheStatsHandler(serverCtx),
			},
			{
				Method:  http.MethodDelete,
				Path:    "/market/cache",
				Handler: ClearCacheHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api"),
	)

	server.AddRoute(rest.Route{
		Method:  http.MethodGet,
		Path:    "/metrics",
		Handler: promhttp.Handler().ServeHTTP,
	})
}
