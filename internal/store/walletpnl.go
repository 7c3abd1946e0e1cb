package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"polymarket-ingestor/internal/models"
)

// WalletPnlRepo persists the per-wallet, per-period PnL/winrate summary
// the Wallet PnL scheduler recomputes on every tick.
type WalletPnlRepo struct {
	*DB
}

func NewWalletPnlRepo(db *DB) *WalletPnlRepo { return &WalletPnlRepo{DB: db} }

// Upsert performs update_or_create(wallet=..., period=..., defaults=...).
func (r *WalletPnlRepo) Upsert(pnl *models.WalletPnl) error {
	pnl.LastUpdatedAt = time.Now().UTC()
	result := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "walletsid"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"start", "end",
			"openamountinvested", "openamountout", "opencurrentvalue",
			"closedamountinvested", "closedamountout", "closedcurrentvalue",
			"totalinvestedamount", "totalamountout", "currentvalue",
			"realizedwinrateodds", "realizedwinrate",
			"unrealizedwinrateodds", "unrealizedwinrate",
			"highvolumewinrateodds", "highvolumewinrate",
			"lastupdatedat",
		}),
	}).Create(pnl)
	if result.Error != nil {
		return fmt.Errorf("upsert wallet pnl: %w", result.Error)
	}
	return nil
}
