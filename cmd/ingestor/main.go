// Command ingestor runs the Polymarket analytics ingestion pipeline — a
// set of periodic schedulers that discover profitable wallets, mirror
// their positions and trade history, and recompute rolling PnL summaries,
// plus a thin on-demand trigger API over the same jobs.
//
// Architecture:
//
//	main.go                     — entry point: loads config, wires every adapter/repo/scheduler, starts the trigger API, waits for SIGINT/SIGTERM
//	internal/polymarket         — typed adapters over the Data API, Gamma API, and Leaderboard
//	internal/httpclient         — shared rate-limited, retrying REST client
//	internal/discovery          — wallet candidate fetching and PnL-gate evaluation
//	internal/aggregate          — raw activity → daily per-outcome trade aggregation
//	internal/store              — GORM/MySQL repository layer
//	internal/scheduler          — one file per periodic job, each behind a Runner
//	internal/api                — on-demand trigger endpoints + /healthz + /metrics
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"polymarket-ingestor/internal/api"
	"polymarket-ingestor/internal/config"
	"polymarket-ingestor/internal/discovery"
	"polymarket-ingestor/internal/httpclient"
	"polymarket-ingestor/internal/logging"
	"polymarket-ingestor/internal/polymarket"
	"polymarket-ingestor/internal/scheduler"
	"polymarket-ingestor/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("POLY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("invalid config: " + err.Error())
	}

	logger := logging.New(cfg.Logging)

	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	walletRepo := store.NewWalletRepo(db)
	eventRepo := store.NewEventMarketRepo(db)
	posRepo := store.NewPositionRepo(db)
	tradeRepo := store.NewTradeRepo(db)
	batchRepo := store.NewBatchRepo(db)
	pnlRepo := store.NewWalletPnlRepo(db)

	rl := httpclient.NewRateLimiter(cfg.RateLimit)
	dataHTTP := httpclient.New(cfg.API.DataAPIBaseURL, *cfg, rl, logger)
	gammaHTTP := httpclient.New(cfg.API.GammaAPIBaseURL, *cfg, rl, logger)
	leaderboardHTTP := httpclient.New(cfg.API.LeaderboardBaseURL, *cfg, rl, logger)

	dataAPI := polymarket.NewDataAPIClient(dataHTTP)
	gammaClient := polymarket.NewGammaClient(gammaHTTP)
	leaderboardClient := polymarket.NewLeaderboardClient(leaderboardHTTP, cfg.Discovery.LeaderboardPageSize)

	gates := discovery.Gates{
		MinTradeCount:    cfg.Discovery.MinTradeCount,
		MinPositionCount: cfg.Discovery.MinPositionCount,
		MinCombinedPnl:   mustDecimal(cfg.Discovery.MinCombinedPnl),
	}
	candidateFetcher := discovery.NewCandidateFetcher(leaderboardClient, cfg.Discovery.Categories, cfg.Discovery.Blacklist, mustDecimal(cfg.Discovery.LeaderboardPnlFloor))
	evaluator := discovery.NewEvaluator(dataAPI, cfg.Discovery.ActivityWindowDays)

	discoveryJob := scheduler.NewDiscoveryScheduler(db, candidateFetcher, evaluator, dataAPI, gammaClient, gates, cfg.Schedulers.EventWorkers)
	eventsJob := scheduler.NewEventsScheduler(gammaClient, eventRepo, cfg.Schedulers.EventWorkers, cfg.Schedulers.EventsStaleAfter)
	positionsJob := scheduler.NewPositionsScheduler(dataAPI, walletRepo, eventRepo, posRepo, cfg.Schedulers.PositionWorkers)
	tradeSyncJob := scheduler.NewTradeSyncScheduler(dataAPI, tradeRepo, batchRepo, posRepo, cfg.Schedulers.TradeSyncWorkers)
	closedEnrichJob := scheduler.NewClosedEnrichmentScheduler(dataAPI, posRepo, cfg.Schedulers.ClosedEnrichWorkers)
	batchSyncJob := scheduler.NewBatchSyncScheduler(batchRepo)
	walletPnlJob := scheduler.NewWalletPnlScheduler(walletRepo, posRepo, tradeRepo, pnlRepo, cfg.Schedulers.WalletPnlPeriods, cfg.Schedulers.WalletPnlWorkers)

	discoveryRunner := scheduler.NewRunner("discovery", cfg.Schedulers.DiscoveryInterval, discoveryJob.Tick, logger)
	eventsRunner := scheduler.NewRunner("events", cfg.Schedulers.EventsMarketsInterval, eventsJob.Tick, logger)
	positionsRunner := scheduler.NewRunner("positions", cfg.Schedulers.PositionsInterval, positionsJob.Tick, logger)
	tradeSyncRunner := scheduler.NewRunner("trade_sync", cfg.Schedulers.TradeSyncInterval, tradeSyncJob.Tick, logger)
	closedEnrichRunner := scheduler.NewRunner("closed_enrich", cfg.Schedulers.ClosedEnrichInterval, closedEnrichJob.Tick, logger)
	batchSyncRunner := scheduler.NewRunner("batch_sync", cfg.Schedulers.BatchSyncInterval, batchSyncJob.Tick, logger)
	walletPnlRunner := scheduler.NewRunner("wallet_pnl", cfg.Schedulers.WalletPnlInterval, walletPnlJob.Tick, logger)

	runners := []*scheduler.Runner{
		discoveryRunner, eventsRunner, positionsRunner, tradeSyncRunner,
		closedEnrichRunner, batchSyncRunner, walletPnlRunner,
	}

	ctx, cancel := context.WithCancel(context.Background())
	for _, r := range runners {
		r := r
		go r.Start(ctx)
	}

	var apiServer *api.Server
	if cfg.Server.Enabled {
		handlers := api.NewHandlers(discoveryRunner, eventsRunner, positionsRunner, tradeSyncRunner, closedEnrichRunner, batchSyncRunner, walletPnlRunner, walletPnlJob, logger)
		apiServer = api.NewServer(cfg.Server, handlers, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("trigger api failed")
			}
		}()
	}

	logger.Info().
		Int("categories", len(cfg.Discovery.Categories)).
		Bool("trigger_api", cfg.Server.Enabled).
		Msg("ingestion pipeline started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("failed to stop trigger api")
		}
	}
	cancel()
}

// mustDecimal parses a config-supplied decimal literal, panicking on a
// malformed value since these only ever come from static configuration
// validated at deploy time, never from user input.
func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}
