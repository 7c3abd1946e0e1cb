package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"polymarket-ingestor/internal/models"
	"polymarket-ingestor/internal/store"
)

// epochStart is the sentinel "no real end date" value some closed
// positions carry, treated as always in-range — same rule the discovery
// evaluator applies when judging activity recency.
var epochStart = time.Unix(0, 0).UTC()

// WalletPnlScheduler recomputes every active wallet's rolling PnL and
// winrate summary for each configured period.
type WalletPnlScheduler struct {
	walletRepo *store.WalletRepo
	posRepo    *store.PositionRepo
	tradeRepo  *store.TradeRepo
	pnlRepo    *store.WalletPnlRepo
	periods    []int
	workers    int
}

// NewWalletPnlScheduler creates the wallet PnL job over the given default
// periods (days).
func NewWalletPnlScheduler(walletRepo *store.WalletRepo, posRepo *store.PositionRepo, tradeRepo *store.TradeRepo, pnlRepo *store.WalletPnlRepo, periods []int, workers int) *WalletPnlScheduler {
	return &WalletPnlScheduler{walletRepo: walletRepo, posRepo: posRepo, tradeRepo: tradeRepo, pnlRepo: pnlRepo, periods: periods, workers: workers}
}

// Tick recomputes PnL for every active wallet over the scheduler's default
// periods.
func (s *WalletPnlScheduler) Tick(ctx context.Context) (Stats, error) {
	return s.RunFor(ctx, nil, s.periods)
}

// RunFor recomputes PnL for the given wallet IDs (nil/empty means every
// active wallet) over the given periods (nil/empty means the scheduler's
// configured defaults) — the entry point the on-demand trigger endpoint
// drives with a caller-supplied subset.
func (s *WalletPnlScheduler) RunFor(ctx context.Context, walletIDs []uint64, periods []int) (Stats, error) {
	if len(periods) == 0 {
		periods = s.periods
	}
	wallets, err := s.walletRepo.ListActive(walletIDs)
	if err != nil {
		return Stats{}, fmt.Errorf("list active wallets: %w", err)
	}
	if len(wallets) == 0 {
		return Stats{Message: "no active wallets"}, nil
	}

	type job struct {
		wallet models.Wallet
		period int
	}
	var jobs []job
	for _, w := range wallets {
		for _, p := range periods {
			jobs = append(jobs, job{wallet: w, period: p})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	var succeeded, failed int

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			err := s.computeOne(gctx, j.wallet, j.period)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
			mu.Unlock()
			return nil // one wallet/period's failure never aborts the rest of the tick
		})
	}
	_ = g.Wait()

	return Stats{Processed: len(jobs), Succeeded: succeeded, Failed: failed}, nil
}

type marketSide struct {
	amountInvested decimal.Decimal
	amountOut      decimal.Decimal
	currentValue   decimal.Decimal
	realizedPnl    decimal.Decimal
	unrealizedPnl  decimal.Decimal
	isOpen         bool
	inRange        bool
}

func (s *WalletPnlScheduler) computeOne(ctx context.Context, wallet models.Wallet, period int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -period).Truncate(24 * time.Hour)

	open, err := s.posRepo.OpenPositionsByWallet(wallet.WalletsID)
	if err != nil {
		return fmt.Errorf("load open positions for wallet %d: %w", wallet.WalletsID, err)
	}
	closed, err := s.posRepo.ClosedPositionsByWallet(wallet.WalletsID)
	if err != nil {
		return fmt.Errorf("load closed positions for wallet %d: %w", wallet.WalletsID, err)
	}

	byMarket := make(map[uint64][]models.Position)
	for _, p := range open {
		byMarket[p.MarketsID] = append(byMarket[p.MarketsID], p)
	}
	closedByMarket := make(map[uint64][]models.Position)
	for _, p := range closed {
		closedByMarket[p.MarketsID] = append(closedByMarket[p.MarketsID], p)
	}

	allMarkets := make(map[uint64]bool)
	for m := range byMarket {
		allMarkets[m] = true
	}
	for m := range closedByMarket {
		allMarkets[m] = true
	}

	row := models.WalletPnl{
		WalletsID:            wallet.WalletsID,
		Period:               period,
		Start:                cutoff,
		End:                  time.Now().UTC(),
		OpenAmountInvested:   decimal.Zero,
		OpenAmountOut:        decimal.Zero,
		OpenCurrentValue:     decimal.Zero,
		ClosedAmountInvested: decimal.Zero,
		ClosedAmountOut:      decimal.Zero,
		ClosedCurrentValue:   decimal.Zero,
	}

	realizedWins, realizedLosses := 0, 0
	unrealizedWins, unrealizedLosses := 0, 0

	for marketID := range allMarkets {
		openPositions := byMarket[marketID]
		closedPositions := closedByMarket[marketID]

		if len(openPositions) > 0 {
			side := s.evaluateOpenMarket(ctx, wallet, marketID, openPositions, closedPositions, cutoff)
			if !side.inRange {
				continue
			}
			row.OpenAmountInvested = row.OpenAmountInvested.Add(side.amountInvested)
			row.OpenAmountOut = row.OpenAmountOut.Add(side.amountOut)
			row.OpenCurrentValue = row.OpenCurrentValue.Add(side.currentValue)
			if side.unrealizedPnl.GreaterThan(decimal.Zero) {
				unrealizedWins++
			} else if side.unrealizedPnl.LessThan(decimal.Zero) {
				unrealizedLosses++
			}
			continue
		}

		if !hasClosedPositionsInRange(closedPositions, cutoff) {
			continue
		}
		side := evaluateClosedMarket(closedPositions)
		row.ClosedAmountInvested = row.ClosedAmountInvested.Add(side.amountInvested)
		row.ClosedAmountOut = row.ClosedAmountOut.Add(side.amountOut)
		if side.realizedPnl.GreaterThan(decimal.Zero) {
			realizedWins++
		} else if side.realizedPnl.LessThan(decimal.Zero) {
			realizedLosses++
		}
	}

	row.TotalInvestedAmount = row.OpenAmountInvested.Add(row.ClosedAmountInvested)
	row.TotalAmountOut = row.OpenAmountOut.Add(row.ClosedAmountOut)
	row.CurrentValue = row.OpenCurrentValue.Add(row.ClosedCurrentValue)

	row.RealizedWinrateOdds, row.RealizedWinrate = winrate(realizedWins, realizedLosses)
	row.UnrealizedWinrateOdds, row.UnrealizedWinrate = winrate(unrealizedWins, unrealizedLosses)
	// High-volume winrate reuses the realized win/loss pair, matching the
	// upstream scheduler's persistPnlData.
	row.HighVolumeWinrateOdds, row.HighVolumeWinrate = winrate(realizedWins, realizedLosses)

	return s.pnlRepo.Upsert(&row)
}

// evaluateOpenMarket reads one market's calculated* figures for a wallet
// and decides whether that market counts toward the period window — in
// range if any position traded recently or any closed position in the
// same market is itself in range (a market can carry both open and
// already-closed outcomes). calculatedAmountInvested/calculatedAmountOut/
// calculatedCurrentValue are duplicated identically across every outcome
// position of this (wallet, market) by the trade-sync pipeline, so any one
// open position is representative — summing across outcomes would count
// the market's total multiple times over.
func (s *WalletPnlScheduler) evaluateOpenMarket(ctx context.Context, wallet models.Wallet, marketID uint64, open, closed []models.Position, cutoff time.Time) marketSide {
	side := marketSide{isOpen: true}

	latestTrade := time.Time{}
	trades, err := s.tradeRepo.TradesForMarket(wallet.WalletsID, marketID)
	if err == nil {
		for _, t := range trades {
			if t.TradeDate.After(latestTrade) {
				latestTrade = t.TradeDate
			}
		}
	}

	side.inRange = !latestTrade.IsZero() && (latestTrade.After(cutoff) || latestTrade.Equal(cutoff))
	if !side.inRange {
		side.inRange = hasClosedPositionsInRange(closed, cutoff)
	}

	rep := open[0]
	side.amountInvested = rep.CalculatedAmountInvested
	side.amountOut = rep.CalculatedAmountOut
	side.currentValue = rep.CalculatedCurrentValue
	side.unrealizedPnl = rep.CalculatedCurrentValue.Add(rep.CalculatedAmountOut).Sub(rep.CalculatedAmountInvested)
	return side
}

// evaluateClosedMarket trusts the upstream-reported apiRealizedPnl for a
// closed-only market, per the PnL dual code path's closed branch.
func evaluateClosedMarket(closed []models.Position) marketSide {
	side := marketSide{}
	for _, p := range closed {
		side.amountInvested = side.amountInvested.Add(p.AmountSpent)
		side.realizedPnl = side.realizedPnl.Add(p.ApiRealizedPnl)
	}
	side.amountOut = side.realizedPnl.Add(side.amountInvested)
	return side
}

// hasClosedPositionsInRange applies the epoch-start special rule: a
// position with no trustworthy close date is always treated as in range.
func hasClosedPositionsInRange(closed []models.Position, cutoff time.Time) bool {
	for _, p := range closed {
		if p.LastUpdatedAt.IsZero() || p.LastUpdatedAt.Equal(epochStart) {
			return true
		}
		if p.LastUpdatedAt.After(cutoff) {
			return true
		}
	}
	return false
}

// winrate returns the "wins/total" odds string and the win fraction, or
// ("", nil) when there were no decided bets.
func winrate(wins, losses int) (string, *decimal.Decimal) {
	total := wins + losses
	if total == 0 {
		return "", nil
	}
	odds := fmt.Sprintf("%d/%d", wins, total)
	frac := decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(total)))
	return odds, &frac
}
