package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"polymarket-ingestor/internal/aggregate"
	"polymarket-ingestor/internal/models"
	"polymarket-ingestor/internal/polymarket"
	"polymarket-ingestor/internal/store"
)

// TradeSyncScheduler backfills each (wallet, market) pair flagged
// NEED_TO_PULL_TRADES with its raw upstream activity since the pair's
// watermark, aggregates it into daily trade rows, and advances the
// watermark — the trade synchronization pipeline.
type TradeSyncScheduler struct {
	dataAPI   *polymarket.DataAPIClient
	tradeRepo *store.TradeRepo
	batchRepo *store.BatchRepo
	posRepo   *store.PositionRepo
	workers   int
}

// NewTradeSyncScheduler creates the trade sync job.
func NewTradeSyncScheduler(dataAPI *polymarket.DataAPIClient, tradeRepo *store.TradeRepo, batchRepo *store.BatchRepo, posRepo *store.PositionRepo, workers int) *TradeSyncScheduler {
	return &TradeSyncScheduler{dataAPI: dataAPI, tradeRepo: tradeRepo, batchRepo: batchRepo, posRepo: posRepo, workers: workers}
}

// Tick syncs every wallet/market pair with at least one position needing
// trades, then recomputes realized PnL for every position flagged
// NEED_TO_CALCULATE_PNL.
func (s *TradeSyncScheduler) Tick(ctx context.Context) (Stats, error) {
	pairs, err := s.tradeRepo.WalletsWithMarketsNeedingTradeSync()
	if err != nil {
		return Stats{}, fmt.Errorf("list pairs needing trade sync: %w", err)
	}
	if len(pairs) == 0 {
		return Stats{Message: "no pairs needing trade sync"}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	var succeeded, failed int
	var synced [][2]uint64 // wallet/market pairs that completed cleanly, for the trade-status flip

	for _, p := range pairs {
		p := p
		g.Go(func() error {
			err := s.syncPair(gctx, p)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
				synced = append(synced, [2]uint64{p.WalletsID, p.MarketsID})
			}
			mu.Unlock()
			return nil // one pair's failure never aborts the rest of the tick
		})
	}
	_ = g.Wait()

	if len(synced) > 0 {
		if err := s.posRepo.BulkSetTradeStatus(synced, models.TradeStatusNeedToCalculatePnl); err != nil {
			return Stats{}, fmt.Errorf("flip trade status to need-to-calculate-pnl: %w", err)
		}
	}
	// RecalculateRealizedPnl both computes calculatedAmountInvested/
	// calculatedAmountOut/realizedpnl and promotes NEED_TO_CALCULATE_PNL
	// positions to TRADES_SYNCED in one CTE-driven UPDATE.
	if err := s.tradeRepo.RecalculateRealizedPnl(); err != nil {
		return Stats{}, fmt.Errorf("recalculate realized pnl: %w", err)
	}

	return Stats{Processed: len(pairs), Succeeded: succeeded, Failed: failed}, nil
}

func (s *TradeSyncScheduler) syncPair(ctx context.Context, pair store.WalletMarketPair) error {
	since := int64(0)
	if pair.Batch.LatestFetchedTime != nil {
		since = pair.Batch.LatestFetchedTime.Unix()
	}

	activities, err := s.dataAPI.Activity(ctx, pair.ProxyWallet, pair.PlatformID, since)
	if err != nil {
		return fmt.Errorf("fetch activity for wallet %d market %d: %w", pair.WalletsID, pair.MarketsID, err)
	}
	if len(activities) == 0 {
		return nil
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
		trades[i].WalletsID = pair.WalletsID
		trades[i].MarketsID = pair.MarketsID
	}
	if err := s.tradeRepo.BulkPersistAggregatedTrades(trades); err != nil {
		return fmt.Errorf("persist trades for wallet %d market %d: %w", pair.WalletsID, pair.MarketsID, err)
	}

	batch := pair.Batch
	if batch.BatchID == 0 {
		b, err := s.batchRepo.GetOrInit(pair.WalletsID, pair.MarketsID)
		if err != nil {
			return fmt.Errorf("init batch for wallet %d market %d: %w", pair.WalletsID, pair.MarketsID, err)
		}
		batch = *b
	}

	watermark := agg.LatestDate().Add(24 * time.Hour) // next fetch starts strictly after the last synced day
	if err := s.batchRepo.UpdateWatermark(batch.BatchID, watermark); err != nil {
		return fmt.Errorf("advance watermark for wallet %d market %d: %w", pair.WalletsID, pair.MarketsID, err)
	}
	return nil
}

func mapTradeType(a polymarket.Activity) models.TradeType {
	switch a.Type {
	case "TRADE":
		if a.Side == "SELL" {
			return models.TradeTypeSell
		}
		return models.TradeTypeBuy
	case "MERGE":
		return models.TradeTypeMerge
	case "SPLIT":
		return models.TradeTypeSplit
	case "REDEEM":
		return models.TradeTypeRedeem
	default:
		return models.TradeTypeBuy
	}
}
