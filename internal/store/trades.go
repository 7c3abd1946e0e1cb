package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"polymarket-ingestor/internal/models"
)

// TradeRepo persists aggregated trades and drives the realized-PnL
// recompute pass.
type TradeRepo struct {
	*DB
}

func NewTradeRepo(db *DB) *TradeRepo { return &TradeRepo{DB: db} }

// BulkPersistAggregatedTrades upserts one row per (wallet, market, outcome,
// tradeType, tradeDate), accumulating shares/amount/count on conflict — a
// plain additive upsert rather than an overwrite, so persisting the same
// rows twice counts them twice; callers rely on the batch watermark to
// avoid re-feeding already-synced activity.
func (r *TradeRepo) BulkPersistAggregatedTrades(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	result := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "walletsid"}, {Name: "marketsid"}, {Name: "outcome"},
			{Name: "tradetype"}, {Name: "tradedate"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"totalshares":      clause.Expr{SQL: "trades.totalshares + VALUES(totalshares)"},
			"totalamount":      clause.Expr{SQL: "trades.totalamount + VALUES(totalamount)"},
			"transactioncount": clause.Expr{SQL: "trades.transactioncount + VALUES(transactioncount)"},
		}),
	}).Create(&trades)
	if result.Error != nil {
		return fmt.Errorf("bulk persist aggregated trades: %w", result.Error)
	}
	return nil
}

// RecalculateRealizedPnl recomputes calculatedAmountInvested,
// calculatedAmountOut and realizedpnl for every position flagged
// NEED_TO_CALCULATE_PNL from its (wallet, market)'s full aggregated trade
// history — grouped by (walletsid, marketsid) only, never outcome, since a
// MERGE/SPLIT's cash leg carries outcome "" and must still land in the same
// market total the Yes/No legs contribute to. invested sums the negative
// (BUY/SPLIT) amounts, out sums the non-negative (SELL/MERGE/REDEEM/cash)
// amounts; both are duplicated onto every outcome row of the market, and
// the position is promoted to TRADES_SYNCED. A single set-based UPDATE,
// standing in for the original's CTE-driven recompute.
func (r *TradeRepo) RecalculateRealizedPnl() error {
	sql := `
		UPDATE positions p
		JOIN (
			SELECT
				walletsid, marketsid,
				SUM(CASE WHEN totalamount < 0 THEN -totalamount ELSE 0 END) AS invested,
				SUM(CASE WHEN totalamount >= 0 THEN totalamount ELSE 0 END) AS taken_out
			FROM trades
			GROUP BY walletsid, marketsid
		) agg ON agg.walletsid = p.walletsid AND agg.marketsid = p.marketsid
		SET
			p.calculatedamountinvested = agg.invested,
			p.calculatedamountout = agg.taken_out,
			p.realizedpnl = agg.taken_out - agg.invested,
			p.tradestatus = ?
		WHERE p.tradestatus = ?`
	if err := r.DB.Exec(sql, models.TradeStatusSynced, models.TradeStatusNeedToCalculatePnl).Error; err != nil {
		return fmt.Errorf("recalculate realized pnl: %w", err)
	}
	return nil
}

// TradesForMarket returns every aggregated trade row for one (wallet,
// market) pair, ordered by date — the wallet PnL scheduler reads it to find
// the market's most recent trade date.
func (r *TradeRepo) TradesForMarket(walletsID, marketsID uint64) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.DB.Where("walletsid = ? AND marketsid = ?", walletsID, marketsID).
		Order("tradedate ASC").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("list trades for market: %w", err)
	}
	return trades, nil
}

// WalletMarketPair identifies one (wallet, market) combination whose
// positions need a trade sync pass, joined with its sync batch.
type WalletMarketPair struct {
	WalletsID   uint64
	ProxyWallet string
	MarketsID   uint64
	PlatformID  string
	Batch       models.Batch
}

// WalletsWithMarketsNeedingTradeSync returns every (wallet, market) pair
// that has at least one position flagged NEED_TO_PULL_TRADES, joined with
// its batch watermark — the driving query for the trade sync pipeline,
// grounded on getWalletsWithMarketsNeedingTradeSync's raw SQL join.
func (r *TradeRepo) WalletsWithMarketsNeedingTradeSync() ([]WalletMarketPair, error) {
	type row struct {
		WalletsID         uint64
		ProxyWallet       string
		MarketsID         uint64
		PlatformMarketID  string
		BatchID           uint64
		LatestFetchedTime *time.Time
	}
	var rows []row
	sql := `
		SELECT DISTINCT
			w.walletsid AS wallets_id, w.proxywallet AS proxy_wallet,
			m.marketsid AS markets_id, m.platformmarketid AS platform_market_id,
			COALESCE(b.batchid, 0) AS batch_id, b.latestfetchedtime AS latest_fetched_time
		FROM positions p
		INNER JOIN wallets w ON w.walletsid = p.walletsid
		INNER JOIN markets m ON m.marketsid = p.marketsid
		LEFT JOIN batches b ON b.walletsid = p.walletsid AND b.marketsid = p.marketsid
		WHERE p.tradestatus = ?
		ORDER BY w.walletsid, m.marketsid`
	if err := r.DB.Raw(sql, models.TradeStatusNeedToPullTrades).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list wallets with markets needing trade sync: %w", err)
	}

	pairs := make([]WalletMarketPair, 0, len(rows))
	for _, rr := range rows {
		pairs = append(pairs, WalletMarketPair{
			WalletsID:   rr.WalletsID,
			ProxyWallet: rr.ProxyWallet,
			MarketsID:   rr.MarketsID,
			PlatformID:  rr.PlatformMarketID,
			Batch: models.Batch{
				BatchID:           rr.BatchID,
				WalletsID:         rr.WalletsID,
				MarketsID:         rr.MarketsID,
				LatestFetchedTime: rr.LatestFetchedTime,
			},
		})
	}
	return pairs, nil
}
