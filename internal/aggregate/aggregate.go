// Package aggregate turns a wallet's raw upstream activity (fills,
// merges, splits, redemptions) for one market into daily per-outcome
// totals. It is a pure function of its input — no I/O, no shared state —
// grounded line-for-line on the upstream DailyTrades aggregator.
package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-ingestor/internal/models"
)

// RawActivity is one upstream activity record for a wallet in a market.
type RawActivity struct {
	TradeType models.TradeType
	Outcome   string // "Yes", "No", or "" for the cash leg of a merge/split/redeem
	Size      decimal.Decimal
	UsdcSize  decimal.Decimal
	Timestamp time.Time
}

// key identifies one aggregation bucket within a day.
type key struct {
	tradeType models.TradeType
	outcome   string
}

// DailyTrades accumulates AggregatedTrade rows for one (wallet, market)
// pair, bucketed by calendar day and then by (tradeType, outcome).
type DailyTrades struct {
	byDate map[time.Time]map[key]*models.Trade
}

// New creates an empty aggregator.
func New() *DailyTrades {
	return &DailyTrades{byDate: make(map[time.Time]map[key]*models.Trade)}
}

// mergeSplitOutcomes are the two share legs every MERGE/SPLIT activity
// touches, regardless of whatever single outcome the raw record itself
// reports — a merge collapses one Yes share and one No share into $1 of
// cash (and a split does the reverse), so one raw record always produces
// three trade legs: Yes, No, and the cash leg ("").
var mergeSplitOutcomes = [2]string{"Yes", "No"}

// AddTransaction routes one raw activity record to its (date, tradeType,
// outcome) bucket(s) and applies the trade-type-specific share/amount
// rule. MERGE and SPLIT always expand into three legs — Yes, No, and cash
// — from the record's own Size/UsdcSize, ignoring whatever outcome the
// raw record happened to report. Calling this repeatedly with the same
// inputs is idempotent only insofar as the caller avoids re-feeding the
// same raw activity twice — the aggregator itself has no dedup key beyond
// (date, tradeType, outcome).
func (d *DailyTrades) AddTransaction(a RawActivity) {
	if a.TradeType == models.TradeTypeRedeem && a.Size.IsZero() && a.UsdcSize.IsZero() {
		return
	}

	date := a.Timestamp.UTC().Truncate(24 * time.Hour)

	if a.TradeType == models.TradeTypeMerge || a.TradeType == models.TradeTypeSplit {
		shareShares, shareAmount := legAmounts(a.TradeType, false, a.Size, a.UsdcSize)
		for _, outcome := range mergeSplitOutcomes {
			d.addLeg(date, a.TradeType, outcome, shareShares, shareAmount)
		}
		cashShares, cashAmount := legAmounts(a.TradeType, true, a.Size, a.UsdcSize)
		d.addLeg(date, a.TradeType, "", cashShares, cashAmount)
		return
	}

	shares, amount := processTransaction(a)
	d.addLeg(date, a.TradeType, a.Outcome, shares, amount)
}

// addLeg accumulates one (date, tradeType, outcome) bucket by one leg's
// share/amount delta and bumps its transaction count.
func (d *DailyTrades) addLeg(date time.Time, tradeType models.TradeType, outcome string, shares, amount decimal.Decimal) {
	bucket, ok := d.byDate[date]
	if !ok {
		bucket = make(map[key]*models.Trade)
		d.byDate[date] = bucket
	}

	k := key{tradeType: tradeType, outcome: outcome}
	t, ok := bucket[k]
	if !ok {
		t = &models.Trade{
			Outcome:     outcome,
			TradeType:   tradeType,
			TradeDate:   date,
			TotalShares: decimal.Zero,
			TotalAmount: decimal.Zero,
		}
		bucket[k] = t
	}

	t.TotalShares = t.TotalShares.Add(shares)
	t.TotalAmount = t.TotalAmount.Add(amount)
	t.TransactionCount++
}

// processTransaction returns the (shares, amount) delta for one raw
// BUY/SELL/REDEEM activity record:
//
//	BUY:    shares = +size,  amount = -usdcSize
//	SELL:   shares = -size,  amount = +usdcSize
//	REDEEM: shares = -size, amount = +usdcSize (zero-size rows filtered above)
func processTransaction(a RawActivity) (shares, amount decimal.Decimal) {
	switch a.TradeType {
	case models.TradeTypeBuy:
		return a.Size, a.UsdcSize.Neg()
	case models.TradeTypeSell:
		return a.Size.Neg(), a.UsdcSize
	case models.TradeTypeRedeem:
		return a.Size.Neg(), a.UsdcSize
	default:
		return decimal.Zero, decimal.Zero
	}
}

// legAmounts returns the (shares, amount) delta for one leg of a
// MERGE/SPLIT:
//
//	MERGE: Yes/No leg: shares = -size, amount = 0
//	       cash leg:    shares = 0,    amount = +usdcSize
//	SPLIT: Yes/No leg: shares = +size, amount = 0
//	       cash leg:    shares = 0,    amount = -usdcSize
func legAmounts(tradeType models.TradeType, cashLeg bool, size, usdcSize decimal.Decimal) (shares, amount decimal.Decimal) {
	if cashLeg {
		if tradeType == models.TradeTypeMerge {
			return decimal.Zero, usdcSize
		}
		return decimal.Zero, usdcSize.Neg()
	}
	if tradeType == models.TradeTypeMerge {
		return size.Neg(), decimal.Zero
	}
	return size, decimal.Zero
}

// Trades flattens the aggregator's buckets into Trade rows ready for
// persistence. WalletsID/MarketsID are stamped onto every row by the
// caller, since the aggregator itself is wallet/market-agnostic.
func (d *DailyTrades) Trades() []models.Trade {
	var out []models.Trade
	for _, bucket := range d.byDate {
		for _, t := range bucket {
			out = append(out, *t)
		}
	}
	return out
}

// LatestDate returns the most recent tradeDate seen, or the zero time if
// nothing was ever added — used to advance a Batch's watermark.
func (d *DailyTrades) LatestDate() time.Time {
	var latest time.Time
	for date := range d.byDate {
		if date.After(latest) {
			latest = date
		}
	}
	return latest
}
