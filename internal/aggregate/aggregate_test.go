package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-ingestor/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddTransactionBuyIncreasesSharesDecreasesAmount(t *testing.T) {
	t.Parallel()
	d := New()
	d.AddTransaction(RawActivity{
		TradeType: models.TradeTypeBuy,
		Outcome:   "Yes",
		Size:      dec("100"),
		UsdcSize:  dec("55"),
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})

	trades := d.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].TotalShares.Equal(dec("100")))
	assert.True(t, trades[0].TotalAmount.Equal(dec("-55")))
	assert.Equal(t, 1, trades[0].TransactionCount)
}

func TestAddTransactionSellIncreasesAmountDecreasesShares(t *testing.T) {
	t.Parallel()
	d := New()
	d.AddTransaction(RawActivity{
		TradeType: models.TradeTypeSell,
		Outcome:   "No",
		Size:      dec("40"),
		UsdcSize:  dec("20"),
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})

	trades := d.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].TotalShares.Equal(dec("-40")))
	assert.True(t, trades[0].TotalAmount.Equal(dec("20")))
}

func TestMergeExpandsOneRecordIntoThreeLegs(t *testing.T) {
	t.Parallel()
	d := New()
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	// One raw MERGE record reports a single outcome, but must still expand
	// into Yes, No, and cash legs — the outcome it reports is irrelevant.
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeMerge, Outcome: "Yes", Size: dec("2"), UsdcSize: dec("1"), Timestamp: ts})

	trades := d.Trades()
	require.Len(t, trades, 3)

	var yesLeg, noLeg, cashLeg *models.Trade
	for i := range trades {
		switch trades[i].Outcome {
		case "Yes":
			yesLeg = &trades[i]
		case "No":
			noLeg = &trades[i]
		case "":
			cashLeg = &trades[i]
		}
	}
	require.NotNil(t, yesLeg)
	require.NotNil(t, noLeg)
	require.NotNil(t, cashLeg)

	assert.True(t, yesLeg.TotalShares.Equal(dec("-2")))
	assert.True(t, yesLeg.TotalAmount.IsZero())
	assert.True(t, noLeg.TotalShares.Equal(dec("-2")))
	assert.True(t, noLeg.TotalAmount.IsZero())
	assert.True(t, cashLeg.TotalShares.IsZero())
	assert.True(t, cashLeg.TotalAmount.Equal(dec("1")))
	for _, tr := range trades {
		assert.Equal(t, 1, tr.TransactionCount)
	}
}

func TestSplitMirrorsMergeWithOppositeSigns(t *testing.T) {
	t.Parallel()
	d := New()
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeSplit, Outcome: "No", Size: dec("5"), UsdcSize: dec("5"), Timestamp: ts})

	trades := d.Trades()
	require.Len(t, trades, 3)
	for _, tr := range trades {
		switch tr.Outcome {
		case "Yes", "No":
			assert.True(t, tr.TotalShares.Equal(dec("5")))
			assert.True(t, tr.TotalAmount.IsZero())
		case "":
			assert.True(t, tr.TotalShares.IsZero())
			assert.True(t, tr.TotalAmount.Equal(dec("-5")))
		}
	}
}

func TestRedeemSkipsZeroSizeRows(t *testing.T) {
	t.Parallel()
	d := New()
	d.AddTransaction(RawActivity{
		TradeType: models.TradeTypeRedeem,
		Outcome:   "",
		Size:      dec("0"),
		UsdcSize:  dec("0"),
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.Empty(t, d.Trades())
}

func TestRedeemReducesSharesAndAddsAmount(t *testing.T) {
	t.Parallel()
	d := New()
	d.AddTransaction(RawActivity{
		TradeType: models.TradeTypeRedeem,
		Outcome:   "",
		Size:      dec("25"),
		UsdcSize:  dec("25"),
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	trades := d.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].TotalShares.Equal(dec("-25")))
	assert.True(t, trades[0].TotalAmount.Equal(dec("25")))
}

func TestSameDayTransactionsAccumulate(t *testing.T) {
	t.Parallel()
	d := New()
	ts := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ts2 := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeBuy, Outcome: "Yes", Size: dec("10"), UsdcSize: dec("5"), Timestamp: ts})
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeBuy, Outcome: "Yes", Size: dec("10"), UsdcSize: dec("5"), Timestamp: ts2})

	trades := d.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].TotalShares.Equal(dec("20")))
	assert.Equal(t, 2, trades[0].TransactionCount)
}

func TestDifferentDaysProduceSeparateRows(t *testing.T) {
	t.Parallel()
	d := New()
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeBuy, Outcome: "Yes", Size: dec("10"), UsdcSize: dec("5"),
		Timestamp: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)})
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeBuy, Outcome: "Yes", Size: dec("10"), UsdcSize: dec("5"),
		Timestamp: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)})

	assert.Len(t, d.Trades(), 2)
}

func TestLatestDateTracksMostRecentBucket(t *testing.T) {
	t.Parallel()
	d := New()
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeBuy, Outcome: "Yes", Size: dec("1"), UsdcSize: dec("1"),
		Timestamp: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)})
	d.AddTransaction(RawActivity{TradeType: models.TradeTypeBuy, Outcome: "Yes", Size: dec("1"), UsdcSize: dec("1"),
		Timestamp: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)})

	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), d.LatestDate())
}
