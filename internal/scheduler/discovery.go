package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"polymarket-ingestor/internal/aggregate"
	"polymarket-ingestor/internal/category"
	"polymarket-ingestor/internal/discovery"
	"polymarket-ingestor/internal/models"
	"polymarket-ingestor/internal/polymarket"
	"polymarket-ingestor/internal/store"
)

// DiscoveryScheduler walks the leaderboard for new wallet candidates,
// evaluates each against the configured activity/PnL gates, and persists
// every qualifying wallet's full event/market/position/trade history in
// one transaction.
type DiscoveryScheduler struct {
	db         *store.DB
	candidates *discovery.CandidateFetcher
	evaluator  *discovery.Evaluator
	dataAPI    *polymarket.DataAPIClient
	gamma      *polymarket.GammaClient
	gates      discovery.Gates
	workers    int
}

// NewDiscoveryScheduler creates the discovery job over the given
// candidate fetcher, evaluator, and upstream adapters.
func NewDiscoveryScheduler(db *store.DB, candidates *discovery.CandidateFetcher, evaluator *discovery.Evaluator, dataAPI *polymarket.DataAPIClient, gamma *polymarket.GammaClient, gates discovery.Gates, workers int) *DiscoveryScheduler {
	return &DiscoveryScheduler{db: db, candidates: candidates, evaluator: evaluator, dataAPI: dataAPI, gamma: gamma, gates: gates, workers: workers}
}

// Tick fetches the leaderboard candidate set and evaluates/persists each
// one concurrently, never aborting the tick on a single candidate's
// failure.
func (s *DiscoveryScheduler) Tick(ctx context.Context) (Stats, error) {
	candidates, err := s.candidates.Fetch(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch discovery candidates: %w", err)
	}
	if len(candidates) == 0 {
		return Stats{Message: "no candidates"}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	var succeeded, failed, qualified int
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			passed, err := s.processCandidate(gctx, c)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
				if passed {
					qualified++
				}
			}
			mu.Unlock()
			return nil // one candidate's failure never aborts the rest of the tick
		})
	}
	_ = g.Wait()

	return Stats{
		Processed: len(candidates),
		Succeeded: succeeded,
		Failed:    failed,
		Message:   fmt.Sprintf("candidates=%d qualified=%d failed=%d", len(candidates), qualified, failed),
	}, nil
}

// processCandidate evaluates one candidate and, if it clears the gates,
// persists it as a tracked wallet. Returns whether it qualified.
func (s *DiscoveryScheduler) processCandidate(ctx context.Context, c discovery.Candidate) (bool, error) {
	exists, err := store.NewWalletRepo(s.db).ExistsByProxyWallet(c.ProxyWallet)
	if err != nil {
		return false, fmt.Errorf("check wallet exists %s: %w", c.ProxyWallet, err)
	}
	if exists {
		return false, nil
	}

	open, err := s.dataAPI.OpenPositions(ctx, c.ProxyWallet)
	if err != nil {
		return false, fmt.Errorf("fetch open positions for %s: %w", c.ProxyWallet, err)
	}
	closed, err := s.dataAPI.ClosedPositions(ctx, c.ProxyWallet)
	if err != nil {
		return false, fmt.Errorf("fetch closed positions for %s: %w", c.ProxyWallet, err)
	}

	result, err := s.evaluator.Evaluate(ctx, c.ProxyWallet, open, closed)
	if err != nil {
		return false, fmt.Errorf("evaluate candidate %s: %w", c.ProxyWallet, err)
	}
	if !result.Passes(s.gates) {
		return false, nil
	}

	if err := s.persist(ctx, c, open, closed, result); err != nil {
		return false, fmt.Errorf("persist qualified wallet %s: %w", c.ProxyWallet, err)
	}
	return true, nil
}

// persist writes one qualifying candidate's wallet, category stats,
// events, markets, positions, trade aggregates, and batch watermarks in a
// single transaction.
func (s *DiscoveryScheduler) persist(ctx context.Context, c discovery.Candidate, open []polymarket.OpenPosition, closed []polymarket.ClosedPosition, result *discovery.Result) error {
	groups := discovery.BuildHierarchy(open, closed)
	eventCache := make(map[string]*polymarket.EventResponse)

	return s.db.Transaction(func(tx *gorm.DB) error {
		txDB := &store.DB{DB: tx}
		walletRepo := store.NewWalletRepo(txDB)
		eventRepo := store.NewEventMarketRepo(txDB)
		posRepo := store.NewPositionRepo(txDB)
		tradeRepo := store.NewTradeRepo(txDB)
		batchRepo := store.NewBatchRepo(txDB)

		wallet := models.Wallet{
			ProxyWallet:   c.ProxyWallet,
			Username:      c.Username,
			ProfileImage:  c.ProfileImage,
			WalletType:    models.WalletTypeOld, // discovery persists qualified wallets directly as OLD, skipping the NEW first-sync state
			IsActive:      true,
			CombinedPnl:   result.CombinedPnl,
			TradeCount:    result.TradeCount,
			PositionCount: result.PositionCount,
		}
		if err := walletRepo.UpsertCandidate(&wallet); err != nil {
			return fmt.Errorf("upsert wallet: %w", err)
		}

		for cat, entry := range c.CategoryStats {
			stat := models.WalletCategoryStat{
				WalletsID:       wallet.WalletsID,
				Category:        cat,
				LeaderboardRank: entry.Rank,
				LeaderboardPnl:  entry.Pnl,
			}
			if err := walletRepo.UpsertCategoryStat(&stat); err != nil {
				return fmt.Errorf("upsert category stat %s: %w", cat, err)
			}
		}

		var positions []models.Position
		for _, group := range groups {
			storedMarket, err := s.upsertEventAndMarket(ctx, eventRepo, eventCache, group)
			if err != nil {
				return err
			}

			for _, p := range group.Open {
				positions = append(positions, models.Position{
					WalletsID:         wallet.WalletsID,
					MarketsID:         storedMarket.MarketsID,
					Outcome:           p.Outcome,
					PositionStatus:    models.PositionOpen,
					TradeStatus:       models.TradeStatusNeedToPullTrades,
					TotalShares:       p.Size,
					CurrentShares:     p.Size,
					AverageEntryPrice: p.AvgPrice,
					AmountSpent:       p.InitialValue,
					AmountRemaining:   p.CurrentValue,
				})
			}
			for _, p := range group.Closed {
				positions = append(positions, models.Position{
					WalletsID:      wallet.WalletsID,
					MarketsID:      storedMarket.MarketsID,
					Outcome:        p.Outcome,
					PositionStatus: models.PositionClosed,
					TradeStatus:    models.TradeStatusSynced,
					AmountSpent:    p.AmountSpent,
					ApiRealizedPnl: p.RealizedPnl,
				})
			}

			if !group.HasOpenPositions() {
				continue
			}
			if err := s.persistTradeHistory(ctx, tradeRepo, batchRepo, wallet.WalletsID, storedMarket.MarketsID, c.ProxyWallet, group.ConditionID); err != nil {
				return err
			}
		}

		if err := posRepo.UpsertNewPositions(positions); err != nil {
			return fmt.Errorf("upsert positions: %w", err)
		}
		return nil
	})
}

// upsertEventAndMarket resolves one market group's event (cached per
// event slug, since a discovered wallet's markets routinely share an
// event) and market, persisting both by the same bulk-upsert-by-slug/
// platformMarketId handlers the event/market refresh scheduler uses.
func (s *DiscoveryScheduler) upsertEventAndMarket(ctx context.Context, eventRepo *store.EventMarketRepo, eventCache map[string]*polymarket.EventResponse, group *discovery.MarketGroup) (*models.Market, error) {
	eventResp, ok := eventCache[group.EventSlug]
	if !ok {
		var err error
		eventResp, err = s.gamma.EventBySlug(ctx, group.EventSlug)
		if err != nil {
			return nil, fmt.Errorf("fetch event %s: %w", group.EventSlug, err)
		}
		eventCache[group.EventSlug] = eventResp
	}

	tags := make([]string, 0, len(eventResp.Tags))
	for _, t := range eventResp.Tags {
		tags = append(tags, t.Label)
	}
	event := models.Event{
		Slug:            eventResp.Slug,
		Title:           eventResp.Title,
		Category:        category.Classify(tags),
		StartDate:       eventResp.StartDate,
		EndDate:         eventResp.EndDate,
		MarketCreatedAt: eventResp.CreatedAt,
		MarketUpdatedAt: eventResp.UpdatedAt,
	}
	if err := eventRepo.UpsertEvent(&event); err != nil {
		return nil, fmt.Errorf("upsert event %s: %w", group.EventSlug, err)
	}
	storedEvent, err := eventRepo.GetEventBySlug(group.EventSlug)
	if err != nil {
		return nil, fmt.Errorf("reload event %s: %w", group.EventSlug, err)
	}

	question, closedFlag := "", !group.HasOpenPositions()
	for _, m := range eventResp.Markets {
		if m.ConditionID == group.ConditionID {
			question = m.Question
			closedFlag = m.Closed
			break
		}
	}
	market := models.Market{
		EventsID:         storedEvent.EventsID,
		PlatformMarketID: group.ConditionID,
		Question:         question,
		Closed:           closedFlag,
	}
	if err := eventRepo.UpsertMarket(&market); err != nil {
		return nil, fmt.Errorf("upsert market %s: %w", group.ConditionID, err)
	}
	storedMarket, err := eventRepo.GetMarketByPlatformID(group.ConditionID)
	if err != nil {
		return nil, fmt.Errorf("reload market %s: %w", group.ConditionID, err)
	}
	return storedMarket, nil
}

// persistTradeHistory aggregates and stores a needs-trades market's full
// raw activity and advances its batch watermark, so the new wallet never
// gets re-picked-up by the regular trade sync pass for history discovery
// already obtained during evaluation.
func (s *DiscoveryScheduler) persistTradeHistory(ctx context.Context, tradeRepo *store.TradeRepo, batchRepo *store.BatchRepo, walletsID, marketsID uint64, proxyWallet, conditionID string) error {
	activities, err := s.dataAPI.Activity(ctx, proxyWallet, conditionID, 0)
	if err != nil {
		return fmt.Errorf("fetch activity for %s/%s: %w", proxyWallet, conditionID, err)
	}

	agg := aggregate.New()
	for _, a := range activities {
		agg.AddTransaction(aggregate.RawActivity{
			TradeType: mapTradeType(a),
			Outcome:   a.Outcome,
			Size:      a.Size,
			UsdcSize:  a.UsdcSize,
			Timestamp: a.Timestamp,
		})
	}

	trades := agg.Trades()
	for i := range trades {
		trades[i].WalletsID = walletsID
		trades[i].MarketsID = marketsID
	}
	if err := tradeRepo.BulkPersistAggregatedTrades(trades); err != nil {
		return fmt.Errorf("persist trades for %s/%s: %w", proxyWallet, conditionID, err)
	}

	batch, err := batchRepo.GetOrInit(walletsID, marketsID)
	if err != nil {
		return fmt.Errorf("init batch for %s/%s: %w", proxyWallet, conditionID, err)
	}
	if latest := agg.LatestDate(); !latest.IsZero() {
		if err := batchRepo.UpdateWatermark(batch.BatchID, latest.Add(24*time.Hour)); err != nil {
			return fmt.Errorf("update watermark for %s/%s: %w", proxyWallet, conditionID, err)
		}
	}
	return nil
}
