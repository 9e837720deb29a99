package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"marketboard/internal/cli"
	"marketboard/internal/config"
	"marketboard/pkg/aggregator"
	"marketboard/pkg/journal"
	"marketboard/pkg/poller"

	// Import for side-effects: registers market providers
	_ "marketboard/pkg/market/exchanges/coingecko"
	_ "marketboard/pkg/market/exchanges/hyperliquid"
)

var (
	configFile = flag.String("f", "etc/marketboard.yaml", "the config file")
	interval   = flag.Duration("interval", 0, "override the poll interval")
	journalDir = flag.String("journal", "", "write one JSON record per poll into this directory")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting market banner...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("[main] Warning: Failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test", Poll: config.PollConf{UpdateIntervalMs: 120000, AutoStart: true}}
	}
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	marketCfg := appCfg.Market.Value
	if marketCfg == nil {
		marketCfg = config.MustLoadMarket()
	}
	sel := config.MustSelectMarketProviders(marketCfg)
	agg := aggregator.NewFromConfig(marketCfg, sel)

	pollCfg := poller.Config{UpdateInterval: appCfg.Poll.UpdateInterval(), AutoStart: true}
	if *interval > 0 {
		pollCfg.UpdateInterval = *interval
	}
	p := poller.New(agg, pollCfg)

	p.Subscribe(func(state poller.State) {
		if state.IsLoading {
			return
		}
		fmt.Fprintln(os.Stdout, RenderLine(state))
	})
	dir := *journalDir
	if dir == "" {
		dir = appCfg.Poll.JournalDir
	}
	if dir != "" {
		p.Subscribe(journal.NewWriter(dir).Observer())
		log.Printf("[main] Journaling polls to %s", dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("[main] Polling %s for %s every %s. Press Ctrl+C to stop.",
		sel.PrimaryName, strings.Join(agg.Symbols(), ","), p.Interval())
	p.Start(ctx)

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping poller...")

	p.Stop()
	log.Println("[main] Market banner stopped")
}
