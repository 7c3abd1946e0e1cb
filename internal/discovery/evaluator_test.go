package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-ingestor/internal/polymarket"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeActivityFetcher struct {
	byMarket map[string][]polymarket.Activity
}

func (f *fakeActivityFetcher) Activity(_ context.Context, _, conditionID string, _ int64) ([]polymarket.Activity, error) {
	return f.byMarket[conditionID], nil
}

func TestBuildHierarchyGroupsByConditionID(t *testing.T) {
	t.Parallel()
	open := []polymarket.OpenPosition{{ConditionID: "m1", EventSlug: "e1"}}
	closed := []polymarket.ClosedPosition{{ConditionID: "m1"}, {ConditionID: "m2"}}

	h := BuildHierarchy(open, closed)
	require.Len(t, h, 2)
	assert.True(t, h["m1"].HasOpenPositions())
	assert.False(t, h["m2"].HasOpenPositions())
}

func TestEvaluateOpenMarketPnl(t *testing.T) {
	t.Parallel()
	fetcher := &fakeActivityFetcher{byMarket: map[string][]polymarket.Activity{
		"m1": {
			{Type: "TRADE", Side: "BUY", Outcome: "Yes", Size: dec("100"), UsdcSize: dec("50"), Timestamp: time.Now()},
		},
	}}
	e := NewEvaluator(fetcher, 30)

	open := []polymarket.OpenPosition{{ConditionID: "m1", EventSlug: "e1", CurrentValue: dec("70")}}
	result, err := e.Evaluate(context.Background(), "0xabc", open, nil)
	require.NoError(t, err)

	// invested=50, takenOut=0, currentValue=70 -> pnl = 0+70-50 = 20
	assert.True(t, result.OpenPnl.Equal(dec("20")), "open pnl = %s", result.OpenPnl)
	assert.True(t, result.CombinedPnl.Equal(dec("20")))
	// tradeCount tracks raw trade activity, independent of position count.
	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, 1, result.PositionCount)
}

func TestEvaluateOpenMarketTradeCountIsIndependentOfPositionCount(t *testing.T) {
	t.Parallel()
	activities := map[string][]polymarket.Activity{}
	open := make([]polymarket.OpenPosition, 0, 5)
	for i := 0; i < 5; i++ {
		conditionID := fmt.Sprintf("m%d", i)
		open = append(open, polymarket.OpenPosition{ConditionID: conditionID, EventSlug: "e", CurrentValue: dec("10")})
		var acts []polymarket.Activity
		for j := 0; j < 10; j++ {
			acts = append(acts, polymarket.Activity{
				Type: "TRADE", Side: "BUY", Outcome: "Yes",
				Size: dec("1"), UsdcSize: dec("10"), Timestamp: time.Now(),
			})
		}
		activities[conditionID] = acts
	}
	e := NewEvaluator(&fakeActivityFetcher{byMarket: activities}, 30)

	result, err := e.Evaluate(context.Background(), "0xabc", open, nil)
	require.NoError(t, err)

	assert.Equal(t, 50, result.TradeCount)
	assert.Equal(t, 5, result.PositionCount)
}

func TestEvaluateClosedMarketPnl(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(&fakeActivityFetcher{}, 30)

	closed := []polymarket.ClosedPosition{
		{ConditionID: "m2", RealizedPnl: dec("30"), AmountSpent: dec("100")},
	}
	result, err := e.Evaluate(context.Background(), "0xabc", nil, closed)
	require.NoError(t, err)

	assert.True(t, result.ClosedPnl.Equal(dec("30")))
	assert.True(t, result.ClosedAmountInvested.Equal(dec("100")))
	assert.True(t, result.ClosedAmountOut.Equal(dec("130")))
}

func TestPassesRequiresBothActivityAndPnlGates(t *testing.T) {
	t.Parallel()
	gates := Gates{MinTradeCount: 20, MinPositionCount: 10, MinCombinedPnl: dec("10000")}

	strong := &Result{TradeCount: 25, PositionCount: 12, CombinedPnl: dec("15000")}
	assert.True(t, strong.Passes(gates))

	lowPnl := &Result{TradeCount: 25, PositionCount: 12, CombinedPnl: dec("100")}
	assert.False(t, lowPnl.Passes(gates))

	lowActivity := &Result{TradeCount: 2, PositionCount: 1, CombinedPnl: dec("20000")}
	assert.False(t, lowActivity.Passes(gates))
}

func TestHasClosedPositionsInRangeEpochStartSpecialCase(t *testing.T) {
	t.Parallel()
	epoch := time.Unix(0, 0).UTC()
	closed := []polymarket.ClosedPosition{{EndDate: &epoch}}
	cutoff := time.Now().UTC().AddDate(0, 0, -30)

	assert.True(t, hasClosedPositionsInRange(closed, cutoff))
}

func TestHasClosedPositionsInRangeRespectsCutoff(t *testing.T) {
	t.Parallel()
	old := time.Now().UTC().AddDate(0, -6, 0)
	closed := []polymarket.ClosedPosition{{EndDate: &old}}
	cutoff := time.Now().UTC().AddDate(0, 0, -30)

	assert.False(t, hasClosedPositionsInRange(closed, cutoff))
}
