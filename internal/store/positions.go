package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"polymarket-ingestor/internal/models"
)

// PositionRepo persists positions and drives the bulk update primitives the
// position-reconciliation scheduler needs.
type PositionRepo struct {
	*DB
}

func NewPositionRepo(db *DB) *PositionRepo { return &PositionRepo{DB: db} }

// UpsertNewPositions bulk-inserts freshly-discovered positions, updating in
// place on conflict — the Go equivalent of bulk_create(update_conflicts=True,
// unique_fields=['walletsid','marketsid','outcome'], batch_size=500).
func (r *PositionRepo) UpsertNewPositions(positions []models.Position) error {
	if len(positions) == 0 {
		return nil
	}
	const batchSize = 500
	for start := 0; start < len(positions); start += batchSize {
		end := start + batchSize
		if end > len(positions) {
			end = len(positions)
		}
		batch := positions[start:end]
		result := r.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "walletsid"}, {Name: "marketsid"}, {Name: "outcome"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"positionstatus", "totalshares", "currentshares", "averageentryprice",
				"amountspent", "amountremaining", "tradestatus", "lastupdatedat",
			}),
		}).Create(&batch)
		if result.Error != nil {
			return fmt.Errorf("upsert new positions batch [%d:%d]: %w", start, end, result.Error)
		}
	}
	return nil
}

// PositionUpdate is one row of the reconciliation bulk-update statement.
type PositionUpdate struct {
	PositionsID       uint64
	PositionStatus    models.PositionStatus
	TotalShares       decimal.Decimal
	CurrentShares     decimal.Decimal
	AverageEntryPrice decimal.Decimal
	AmountSpent       decimal.Decimal
	AmountRemaining   decimal.Decimal
	TradeStatus       models.TradeStatus
}

// BulkUpdatePositions applies the three-case reconciliation outcome to many
// positions in one round trip, via a CASE-based single UPDATE statement —
// the Go equivalent of the original handler's raw-SQL CASE pattern.
func (r *PositionRepo) BulkUpdatePositions(updates []PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var (
		caseStatus, caseShares, caseCurShares, caseAvgPrice string
		caseSpent, caseRemaining, caseTradeStatus           string
		ids                                                 []uint64
		args                                                []any
	)
	for _, u := range updates {
		caseStatus += "WHEN ? THEN ? "
		caseShares += "WHEN ? THEN ? "
		caseCurShares += "WHEN ? THEN ? "
		caseAvgPrice += "WHEN ? THEN ? "
		caseSpent += "WHEN ? THEN ? "
		caseRemaining += "WHEN ? THEN ? "
		caseTradeStatus += "WHEN ? THEN ? "
		ids = append(ids, u.PositionsID)
	}

	buildArgs := func(get func(PositionUpdate) any) []any {
		var a []any
		for _, u := range updates {
			a = append(a, u.PositionsID, get(u))
		}
		return a
	}

	args = append(args, buildArgs(func(u PositionUpdate) any { return int(u.PositionStatus) })...)
	args = append(args, buildArgs(func(u PositionUpdate) any { return u.TotalShares })...)
	args = append(args, buildArgs(func(u PositionUpdate) any { return u.CurrentShares })...)
	args = append(args, buildArgs(func(u PositionUpdate) any { return u.AverageEntryPrice })...)
	args = append(args, buildArgs(func(u PositionUpdate) any { return u.AmountSpent })...)
	args = append(args, buildArgs(func(u PositionUpdate) any { return u.AmountRemaining })...)
	args = append(args, buildArgs(func(u PositionUpdate) any { return int(u.TradeStatus) })...)
	args = append(args, now)
	args = append(args, ids)

	sql := fmt.Sprintf(`UPDATE positions SET
		positionstatus = CASE positionsid %s END,
		totalshares = CASE positionsid %s END,
		currentshares = CASE positionsid %s END,
		averageentryprice = CASE positionsid %s END,
		amountspent = CASE positionsid %s END,
		amountremaining = CASE positionsid %s END,
		tradestatus = CASE positionsid %s END,
		lastupdatedat = ?
		WHERE positionsid IN ?`,
		caseStatus, caseShares, caseCurShares, caseAvgPrice, caseSpent, caseRemaining, caseTradeStatus)

	if err := r.DB.Exec(sql, args...).Error; err != nil {
		return fmt.Errorf("bulk update positions: %w", err)
	}
	return nil
}

// ClosedUpdate is one row of the closed-position enrichment's final
// apiRealizedPnl application — the upstream-reported figure, trusted as-is
// per the closed branch's half of the dual code path.
type ClosedUpdate struct {
	PositionsID    uint64
	ApiRealizedPnl decimal.Decimal
}

// MarkClosed applies the enrichment pass's final apiRealizedPnl, zeroes
// currentshares/amountremaining per the CLOSED invariant, flips
// positionstatus to CLOSED and tradestatus to SYNCED — a narrower
// CASE-based update than BulkUpdatePositions: totalshares,
// averageentryprice and amountspent are left as they are.
func (r *PositionRepo) MarkClosed(updates []ClosedUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var casePnl string
	var ids []uint64
	var pnlArgs []any
	for _, u := range updates {
		casePnl += "WHEN ? THEN ? "
		ids = append(ids, u.PositionsID)
		pnlArgs = append(pnlArgs, u.PositionsID, u.ApiRealizedPnl)
	}

	args := append([]any{}, pnlArgs...)
	args = append(args, int(models.PositionClosed), int(models.TradeStatusSynced), now, ids)

	sql := fmt.Sprintf(`UPDATE positions SET
		apirealizedpnl = CASE positionsid %s END,
		currentshares = 0,
		amountremaining = 0,
		positionstatus = ?,
		tradestatus = ?,
		lastupdatedat = ?
		WHERE positionsid IN ?`, casePnl)

	if err := r.DB.Exec(sql, args...).Error; err != nil {
		return fmt.Errorf("mark positions closed: %w", err)
	}
	return nil
}

// OpenPositionsByWallet returns every OPEN position for a wallet. Rows
// carry only the internal marketsid; callers resolve the platform ID
// separately.
func (r *PositionRepo) OpenPositionsByWallet(walletsID uint64) ([]models.Position, error) {
	var positions []models.Position
	err := r.DB.Where("walletsid = ? AND positionstatus = ?", walletsID, models.PositionOpen).Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	return positions, nil
}

// ClosedPositionsByWallet returns every CLOSED position for a wallet.
func (r *PositionRepo) ClosedPositionsByWallet(walletsID uint64) ([]models.Position, error) {
	var positions []models.Position
	err := r.DB.Where("walletsid = ? AND positionstatus = ?", walletsID, models.PositionClosed).Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("list closed positions: %w", err)
	}
	return positions, nil
}

// ClosedNeedDataRow is one position flagged POSITION_CLOSED_NEED_DATA,
// joined with its wallet and market identity — the row shape the
// closed-position enrichment pass fans out over.
type ClosedNeedDataRow struct {
	PositionsID uint64
	WalletsID   uint64
	ProxyWallet string
	MarketsID   uint64
	PlatformID  string
	Outcome     string
}

// NeedingClosedData returns every position flagged
// POSITION_CLOSED_NEED_DATA, joined with its wallet and market, ordered by
// (wallet, market) so the caller can group by (proxyWallet, platformMarketID).
func (r *PositionRepo) NeedingClosedData() ([]ClosedNeedDataRow, error) {
	var rows []ClosedNeedDataRow
	sql := `
		SELECT
			p.positionsid AS positions_id, p.walletsid AS wallets_id, w.proxywallet AS proxy_wallet,
			p.marketsid AS markets_id, m.platformmarketid AS platform_id, p.outcome
		FROM positions p
		INNER JOIN wallets w ON w.walletsid = p.walletsid
		INNER JOIN markets m ON m.marketsid = p.marketsid
		WHERE p.tradestatus = ?
		ORDER BY p.walletsid, p.marketsid`
	if err := r.DB.Raw(sql, models.TradeStatusClosedNeedData).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list positions needing closed data: %w", err)
	}
	return rows, nil
}

// NeedingTradeSync returns positions flagged NEED_TO_PULL_TRADES, ordered
// by (walletsid, marketsid, outcome) — the driving query for the trade
// sync pipeline.
func (r *PositionRepo) NeedingTradeSync() ([]models.Position, error) {
	var positions []models.Position
	err := r.DB.Where("tradestatus = ?", models.TradeStatusNeedToPullTrades).
		Order("walletsid, marketsid, outcome").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("list positions needing trade sync: %w", err)
	}
	return positions, nil
}

// BulkSetTradeStatus flips tradestatus for many positions identified by
// (walletsid, marketsid) pairs in a single transaction, mirroring
// bulkUpdatePositionsTradeStatus's composite-key update — one pass over
// all the wallet/market pairs the trade sync pipeline just finished.
func (r *PositionRepo) BulkSetTradeStatus(walletMarketIDs [][2]uint64, status models.TradeStatus) error {
	if len(walletMarketIDs) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, wm := range walletMarketIDs {
			err := tx.Model(&models.Position{}).
				Where("walletsid = ? AND marketsid = ?", wm[0], wm[1]).
				Update("tradestatus", status).Error
			if err != nil {
				return fmt.Errorf("set trade status for wallet %d market %d: %w", wm[0], wm[1], err)
			}
		}
		return nil
	})
}

// RecalculateCurrentValues recomputes each open position's
// calculatedcurrentvalue as the (wallet, market) pair's total open
// amountremaining, summed across every outcome of that market for that
// wallet — a single set-based UPDATE joining positions to a per-(wallet,
// market) aggregate, standing in for the original's market-wide
// "calculated current value" recompute pass that runs after every
// position-update tick. Grouping and joining on walletsid as well as
// marketsid keeps two different wallets holding the same market from
// bleeding their totals into each other.
func (r *PositionRepo) RecalculateCurrentValues() error {
	sql := `
		UPDATE positions p
		JOIN (
			SELECT walletsid, marketsid, SUM(amountremaining) AS market_total
			FROM positions
			WHERE positionstatus = ?
			GROUP BY walletsid, marketsid
		) agg ON agg.walletsid = p.walletsid AND agg.marketsid = p.marketsid
		SET p.calculatedcurrentvalue = agg.market_total
		WHERE p.positionstatus = ?`
	if err := r.DB.Exec(sql, models.PositionOpen, models.PositionOpen).Error; err != nil {
		return fmt.Errorf("recalculate current values: %w", err)
	}
	return nil
}
