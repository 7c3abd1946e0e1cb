package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"polymarket-ingestor/internal/models"
	"polymarket-ingestor/internal/polymarket"
	"polymarket-ingestor/internal/store"
)

// thresholds below which a position diff is treated as noise rather than a
// real change, mirroring the original handler's _needsUpdate tolerances.
var (
	sharesEpsilon       = decimal.RequireFromString("0.000001")
	priceEpsilon        = decimal.RequireFromString("0.000001")
	currentValueEpsilon = decimal.RequireFromString("0.01")
	amountSpentEpsilon  = decimal.RequireFromString("0.01")
)

// PositionsScheduler reconciles each OLD wallet's tracked positions
// against the upstream open-positions response, applying the three-case
// state machine: still-open-and-changed, closed-since-last-check, and
// reopened — plus a fourth case, a position the API reports that was
// never seen before, which is inserted fresh.
type PositionsScheduler struct {
	dataAPI    *polymarket.DataAPIClient
	walletRepo *store.WalletRepo
	eventRepo  *store.EventMarketRepo
	posRepo    *store.PositionRepo
	workers    int
}

// NewPositionsScheduler creates the position-reconciliation job.
func NewPositionsScheduler(dataAPI *polymarket.DataAPIClient, walletRepo *store.WalletRepo, eventRepo *store.EventMarketRepo, posRepo *store.PositionRepo, workers int) *PositionsScheduler {
	return &PositionsScheduler{dataAPI: dataAPI, walletRepo: walletRepo, eventRepo: eventRepo, posRepo: posRepo, workers: workers}
}

// Tick reconciles every active OLD wallet's positions, then recomputes
// each affected market's current-value share.
func (s *PositionsScheduler) Tick(ctx context.Context) (Stats, error) {
	wallets, err := s.walletRepo.ListByType(models.WalletTypeOld)
	if err != nil {
		return Stats{}, fmt.Errorf("list old wallets: %w", err)
	}
	if len(wallets) == 0 {
		return Stats{Message: "no old wallets to process"}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	var succeeded, failed int
	for _, w := range wallets {
		w := w
		g.Go(func() error {
			err := s.reconcileWallet(gctx, w)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
			mu.Unlock()
			return nil // one wallet's failure never aborts the rest of the tick
		})
	}
	_ = g.Wait()

	if err := s.posRepo.RecalculateCurrentValues(); err != nil {
		return Stats{}, fmt.Errorf("recalculate current values: %w", err)
	}

	return Stats{Processed: len(wallets), Succeeded: succeeded, Failed: failed}, nil
}

func (s *PositionsScheduler) reconcileWallet(ctx context.Context, wallet models.Wallet) error {
	apiPositions, err := s.dataAPI.OpenPositions(ctx, wallet.ProxyWallet)
	if err != nil {
		return fmt.Errorf("fetch open positions for %s: %w", wallet.ProxyWallet, err)
	}
	apiByKey := make(map[string]polymarket.OpenPosition, len(apiPositions))
	for _, p := range apiPositions {
		apiByKey[p.ConditionID+"|"+p.Outcome] = p
	}

	existingOpen, err := s.posRepo.OpenPositionsByWallet(wallet.WalletsID)
	if err != nil {
		return fmt.Errorf("load open positions for wallet %d: %w", wallet.WalletsID, err)
	}
	existingClosed, err := s.posRepo.ClosedPositionsByWallet(wallet.WalletsID)
	if err != nil {
		return fmt.Errorf("load closed positions for wallet %d: %w", wallet.WalletsID, err)
	}

	marketIDCache := make(map[uint64]string)
	conditionKey := func(marketsID uint64) (string, bool) {
		if c, ok := marketIDCache[marketsID]; ok {
			return c, c != ""
		}
		m, err := s.eventRepo.GetMarketByID(marketsID)
		if err != nil {
			marketIDCache[marketsID] = ""
			return "", false
		}
		marketIDCache[marketsID] = m.PlatformMarketID
		return m.PlatformMarketID, true
	}

	var updates []store.PositionUpdate
	seenConditions := make(map[string]bool, len(existingOpen)+len(existingClosed))

	for _, dbPos := range existingOpen {
		conditionID, ok := conditionKey(dbPos.MarketsID)
		if !ok {
			continue
		}
		k := conditionID + "|" + dbPos.Outcome
		seenConditions[k] = true

		if apiPos, ok := apiByKey[k]; ok {
			// Case 1: still open in both API and DB — update only if materially changed.
			if needsUpdate(dbPos, apiPos) {
				updates = append(updates, fromAPIPosition(dbPos.PositionsID, apiPos, models.PositionOpen, models.TradeStatusNeedToPullTrades))
			}
		} else {
			// Case 2: open in DB, absent from API — it has disappeared from
			// upstream's open list, but positionStatus stays OPEN until the
			// closed-position enrichment pass confirms and flips it CLOSED.
			updates = append(updates, store.PositionUpdate{
				PositionsID:       dbPos.PositionsID,
				PositionStatus:    models.PositionOpen,
				TotalShares:       dbPos.TotalShares,
				CurrentShares:     dbPos.CurrentShares,
				AverageEntryPrice: dbPos.AverageEntryPrice,
				AmountSpent:       dbPos.AmountSpent,
				AmountRemaining:   dbPos.AmountRemaining,
				TradeStatus:       models.TradeStatusClosedNeedData,
			})
		}
	}

	for _, dbPos := range existingClosed {
		conditionID, ok := conditionKey(dbPos.MarketsID)
		if !ok {
			continue
		}
		k := conditionID + "|" + dbPos.Outcome
		seenConditions[k] = true
		if apiPos, ok := apiByKey[k]; ok {
			// Case 3: closed in DB, present in API again — reopen.
			updates = append(updates, fromAPIPosition(dbPos.PositionsID, apiPos, models.PositionOpen, models.TradeStatusNeedToPullTrades))
		}
	}

	if len(updates) > 0 {
		if err := s.posRepo.BulkUpdatePositions(updates); err != nil {
			return fmt.Errorf("bulk update positions for wallet %d: %w", wallet.WalletsID, err)
		}
	}

	// Case 4: positions the API reports that were never tracked at all.
	var fresh []models.Position
	for k, apiPos := range apiByKey {
		if seenConditions[k] {
			continue
		}
		market, err := s.eventRepo.GetMarketByPlatformID(apiPos.ConditionID)
		if err != nil {
			continue // market not yet synced by the events scheduler; picked up next tick
		}
		fresh = append(fresh, models.Position{
			WalletsID:         wallet.WalletsID,
			MarketsID:         market.MarketsID,
			Outcome:           apiPos.Outcome,
			PositionStatus:    models.PositionOpen,
			TradeStatus:       models.TradeStatusNeedToPullTrades,
			TotalShares:       apiPos.Size,
			CurrentShares:     apiPos.Size,
			AverageEntryPrice: apiPos.AvgPrice,
			AmountSpent:       apiPos.InitialValue,
			AmountRemaining:   apiPos.CurrentValue,
			LastUpdatedAt:     time.Now().UTC(),
		})
	}
	if len(fresh) > 0 {
		if err := s.posRepo.UpsertNewPositions(fresh); err != nil {
			return fmt.Errorf("insert new positions for wallet %d: %w", wallet.WalletsID, err)
		}
	}

	return s.walletRepo.MarkFirstSyncDone(wallet.WalletsID)
}

func needsUpdate(dbPos models.Position, apiPos polymarket.OpenPosition) bool {
	if dbPos.CurrentShares.Sub(apiPos.Size).Abs().GreaterThan(sharesEpsilon) {
		return true
	}
	if dbPos.AverageEntryPrice.Sub(apiPos.AvgPrice).Abs().GreaterThan(priceEpsilon) {
		return true
	}
	if dbPos.AmountRemaining.Sub(apiPos.CurrentValue).Abs().GreaterThan(currentValueEpsilon) {
		return true
	}
	if dbPos.AmountSpent.Sub(apiPos.InitialValue).Abs().GreaterThan(amountSpentEpsilon) {
		return true
	}
	return false
}

func fromAPIPosition(positionsID uint64, apiPos polymarket.OpenPosition, status models.PositionStatus, tradeStatus models.TradeStatus) store.PositionUpdate {
	return store.PositionUpdate{
		PositionsID:       positionsID,
		PositionStatus:    status,
		TotalShares:       apiPos.Size,
		CurrentShares:     apiPos.Size,
		AverageEntryPrice: apiPos.AvgPrice,
		AmountSpent:       apiPos.InitialValue,
		AmountRemaining:   apiPos.CurrentValue,
		TradeStatus:       tradeStatus,
	}
}
