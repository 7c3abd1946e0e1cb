// Package discovery implements wallet candidate fetching and the
// open/closed-market PnL evaluation that gates which candidates become
// tracked wallets.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-ingestor/internal/aggregate"
	"polymarket-ingestor/internal/models"
	"polymarket-ingestor/internal/polymarket"
)

// epochStart is the sentinel "no real end date" value the upstream API
// uses for markets that have never been scheduled to close.
var epochStart = time.Unix(0, 0).UTC()

// ActivityFetcher fetches raw per-market activity for a wallet, the
// Data API's activity endpoint.
type ActivityFetcher interface {
	Activity(ctx context.Context, proxyWallet, conditionID string, sinceUnix int64) ([]polymarket.Activity, error)
}

// MarketGroup is one market's open+closed positions for a wallet, grouped
// during hierarchy construction.
type MarketGroup struct {
	ConditionID     string
	EventSlug       string
	Open            []polymarket.OpenPosition
	Closed          []polymarket.ClosedPosition
}

// HasOpenPositions reports whether this market still has live exposure.
func (m *MarketGroup) HasOpenPositions() bool { return len(m.Open) > 0 }

// BuildHierarchy groups a wallet's open and closed positions by condition
// ID, the Go equivalent of buildEventHierarchy's Event→Market grouping
// (flattened here to Market, since category classification and event
// metadata are persisted separately by the event/market refresh
// scheduler, not recomputed during evaluation).
func BuildHierarchy(open []polymarket.OpenPosition, closed []polymarket.ClosedPosition) map[string]*MarketGroup {
	groups := make(map[string]*MarketGroup)
	get := func(conditionID, slug string) *MarketGroup {
		g, ok := groups[conditionID]
		if !ok {
			g = &MarketGroup{ConditionID: conditionID, EventSlug: slug}
			groups[conditionID] = g
		}
		return g
	}
	for _, p := range open {
		g := get(p.ConditionID, p.EventSlug)
		g.Open = append(g.Open, p)
	}
	for _, p := range closed {
		g := get(p.ConditionID, p.EventSlug)
		g.Closed = append(g.Closed, p)
	}
	return groups
}

// MarketPnl is one market's contribution to a wallet's evaluation.
type MarketPnl struct {
	ConditionID     string
	Pnl             decimal.Decimal
	AmountInvested  decimal.Decimal
	AmountOut       decimal.Decimal
	CurrentValue    decimal.Decimal
	IsOpen          bool
	InActivityRange bool
	TradeCount      int
}

// Result is a wallet candidate's full evaluation across all its markets.
type Result struct {
	ProxyWallet        string
	CombinedPnl        decimal.Decimal
	OpenPnl            decimal.Decimal
	ClosedPnl          decimal.Decimal
	TradeCount         int
	PositionCount      int
	OpenAmountInvested decimal.Decimal
	OpenAmountOut      decimal.Decimal
	OpenCurrentValue   decimal.Decimal
	ClosedAmountInvested decimal.Decimal
	ClosedAmountOut    decimal.Decimal
	TotalInvestedAmount decimal.Decimal
	TotalAmountOut     decimal.Decimal
	TotalCurrentValue  decimal.Decimal
	HasActivityInRange bool
}

// Gates holds the discovery thresholds a Result is checked against.
type Gates struct {
	MinTradeCount    int
	MinPositionCount int
	MinCombinedPnl   decimal.Decimal
}

// Passes reports whether a Result clears both the activity filter
// (tradeCount and positionCount floors) and the PnL filter.
func (r *Result) Passes(g Gates) bool {
	passesActivity := r.TradeCount >= g.MinTradeCount && r.PositionCount >= g.MinPositionCount
	passesPnl := r.CombinedPnl.GreaterThanOrEqual(g.MinCombinedPnl)
	return passesActivity && passesPnl
}

// Evaluator computes a candidate's per-market and combined PnL.
type Evaluator struct {
	activity           ActivityFetcher
	activityWindowDays int
}

// NewEvaluator creates an Evaluator backed by the given activity fetcher.
func NewEvaluator(activity ActivityFetcher, activityWindowDays int) *Evaluator {
	return &Evaluator{activity: activity, activityWindowDays: activityWindowDays}
}

// Evaluate computes the full Result for one wallet's open and closed
// positions, per the open/closed two-branch rule.
func (e *Evaluator) Evaluate(ctx context.Context, proxyWallet string, open []polymarket.OpenPosition, closed []polymarket.ClosedPosition) (*Result, error) {
	hierarchy := BuildHierarchy(open, closed)
	cutoff := time.Now().UTC().AddDate(0, 0, -e.activityWindowDays)

	result := &Result{
		ProxyWallet:         proxyWallet,
		CombinedPnl:         decimal.Zero,
		OpenAmountInvested:  decimal.Zero,
		OpenAmountOut:       decimal.Zero,
		OpenCurrentValue:    decimal.Zero,
		ClosedAmountInvested: decimal.Zero,
		ClosedAmountOut:     decimal.Zero,
	}

	for _, market := range hierarchy {
		result.PositionCount += len(market.Open) + len(market.Closed)

		if market.HasOpenPositions() {
			mp, err := e.processOpenMarket(ctx, proxyWallet, market, cutoff)
			if err != nil {
				return nil, fmt.Errorf("process open market %s: %w", market.ConditionID, err)
			}
			result.OpenPnl = result.OpenPnl.Add(mp.Pnl)
			result.OpenAmountInvested = result.OpenAmountInvested.Add(mp.AmountInvested)
			result.OpenAmountOut = result.OpenAmountOut.Add(mp.AmountOut)
			result.OpenCurrentValue = result.OpenCurrentValue.Add(mp.CurrentValue)
			result.TradeCount += mp.TradeCount
			if mp.InActivityRange {
				result.HasActivityInRange = true
			}
		} else {
			mp := processClosedMarket(market)
			result.ClosedPnl = result.ClosedPnl.Add(mp.Pnl)
			result.ClosedAmountInvested = result.ClosedAmountInvested.Add(mp.AmountInvested)
			result.ClosedAmountOut = result.ClosedAmountOut.Add(mp.AmountOut)
			// Closed-only markets never fetch their own activity feed, so
			// their trade count is, and can only be, their position count.
			result.TradeCount += len(market.Closed)
			if hasClosedPositionsInRange(market.Closed, cutoff) {
				result.HasActivityInRange = true
			}
		}
	}

	result.CombinedPnl = result.OpenPnl.Add(result.ClosedPnl)
	result.TotalInvestedAmount = result.OpenAmountInvested.Add(result.ClosedAmountInvested)
	result.TotalAmountOut = result.OpenAmountOut.Add(result.ClosedAmountOut)
	result.TotalCurrentValue = result.OpenCurrentValue
	return result, nil
}

// processOpenMarket fetches the market's raw activity, aggregates it, and
// derives invested/out/current-value/pnl from the aggregate — mirroring
// processMarketWithOpenPositions + calculateMarketPnlFromTrades.
func (e *Evaluator) processOpenMarket(ctx context.Context, proxyWallet string, market *MarketGroup, cutoff time.Time) (MarketPnl, error) {
	activities, err := e.activity.Activity(ctx, proxyWallet, market.ConditionID, 0)
	if err != nil {
		return MarketPnl{}, err
	}

	agg := aggregate.New()
	for _, a := range activities {
		agg.AddTransaction(aggregate.RawActivity{
			TradeType: mapActivityTradeType(a),
			Outcome:   a.Outcome,
			Size:      a.Size,
			UsdcSize:  a.UsdcSize,
			Timestamp: a.Timestamp,
		})
	}

	invested := decimal.Zero
	takenOut := decimal.Zero
	tradeCount := 0
	for _, t := range agg.Trades() {
		switch t.TradeType {
		case models.TradeTypeBuy, models.TradeTypeSplit:
			invested = invested.Add(t.TotalAmount.Abs())
		case models.TradeTypeSell, models.TradeTypeMerge, models.TradeTypeRedeem:
			takenOut = takenOut.Add(t.TotalAmount.Abs())
		}
		tradeCount += t.TransactionCount
	}

	currentValue := decimal.Zero
	for _, p := range market.Open {
		currentValue = currentValue.Add(p.CurrentValue)
	}

	pnl := takenOut.Add(currentValue).Sub(invested)
	inRange := agg.LatestDate().After(cutoff) || agg.LatestDate().Equal(cutoff)

	return MarketPnl{
		ConditionID:     market.ConditionID,
		Pnl:             pnl,
		AmountInvested:  invested,
		AmountOut:       takenOut,
		CurrentValue:    currentValue,
		IsOpen:          true,
		InActivityRange: inRange,
		TradeCount:      tradeCount,
	}, nil
}

// processClosedMarket sums the upstream realizedPnl/amountSpent already
// reported for every closed position in the market — mirroring
// processMarketWithClosedPositions.
func processClosedMarket(market *MarketGroup) MarketPnl {
	pnl := decimal.Zero
	invested := decimal.Zero
	for _, p := range market.Closed {
		pnl = pnl.Add(p.RealizedPnl)
		invested = invested.Add(p.AmountSpent)
	}
	return MarketPnl{
		ConditionID:    market.ConditionID,
		Pnl:            pnl,
		AmountInvested: invested,
		AmountOut:      pnl.Add(invested),
		IsOpen:         false,
	}
}

// hasClosedPositionsInRange applies the epoch-start special rule: a
// position whose endDate is the epoch-start sentinel has no trustworthy
// close date, so it's always treated as "in range"; otherwise the
// position counts only if its endDate falls within the activity window.
func hasClosedPositionsInRange(closed []polymarket.ClosedPosition, cutoff time.Time) bool {
	for _, p := range closed {
		if p.EndDate == nil {
			continue
		}
		if p.EndDate.Equal(epochStart) {
			return true
		}
		if p.EndDate.After(cutoff) {
			return true
		}
	}
	return false
}

func mapActivityTradeType(a polymarket.Activity) models.TradeType {
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
