package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/rest"

	"marketboard/internal/cli"
	"marketboard/internal/config"
	"marketboard/internal/handler"
	"marketboard/internal/svc"
)

var configFile = flag.String("f", "etc/marketboard.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(*cfg)
	handler.RegisterHandlers(server, ctx)

	pollCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx.Poller.Start(pollCtx)
	defer ctx.Poller.Stop()

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
