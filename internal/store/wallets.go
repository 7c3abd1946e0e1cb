package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"polymarket-ingestor/internal/models"
)

// WalletRepo persists discovered wallets and their per-category discovery
// stats.
type WalletRepo struct {
	*DB
}

func NewWalletRepo(db *DB) *WalletRepo { return &WalletRepo{DB: db} }

// UpsertCandidate inserts a newly-qualified wallet, or updates its summary
// fields if it was already tracked (re-evaluation of an existing wallet
// that crosses the gates again).
func (r *WalletRepo) UpsertCandidate(w *models.Wallet) error {
	w.LastUpdatedAt = time.Now().UTC()
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proxywallet"}},
		DoUpdates: clause.AssignmentColumns([]string{"combinedpnl", "tradecount", "positioncount", "lastupdatedat"}),
	}).Create(w)
	if result.Error != nil {
		return fmt.Errorf("upsert wallet candidate: %w", result.Error)
	}
	return nil
}

// UpsertCategoryStat records (or refreshes) the leaderboard rank/PnL a
// wallet was discovered under for one category.
func (r *WalletRepo) UpsertCategoryStat(stat *models.WalletCategoryStat) error {
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "walletsid"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"leaderboardrank", "leaderboardpnl"}),
	}).Create(stat)
	if result.Error != nil {
		return fmt.Errorf("upsert wallet category stat: %w", result.Error)
	}
	return nil
}

// ExistsByProxyWallet reports whether a wallet with this address is
// already tracked, for discovery-side dedup.
func (r *WalletRepo) ExistsByProxyWallet(proxyWallet string) (bool, error) {
	var count int64
	if err := r.DB.Model(&models.Wallet{}).Where("proxywallet = ?", proxyWallet).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check wallet exists: %w", err)
	}
	return count > 0, nil
}

// ListByType returns all active wallets of the given type, ordered by
// lastupdatedat ascending (stalest first), mirroring the original
// scheduler's processing order.
func (r *WalletRepo) ListByType(walletType models.WalletType) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.DB.Where("wallettype = ? AND isactive = ?", walletType, true).
		Order("lastupdatedat ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("list wallets by type: %w", err)
	}
	return wallets, nil
}

// ListActive returns every active wallet, optionally filtered to a subset
// of wallet IDs (nil/empty means all).
func (r *WalletRepo) ListActive(walletIDs []uint64) ([]models.Wallet, error) {
	q := r.DB.Where("isactive = ?", true)
	if len(walletIDs) > 0 {
		q = q.Where("walletsid IN ?", walletIDs)
	}
	var wallets []models.Wallet
	if err := q.Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("list active wallets: %w", err)
	}
	return wallets, nil
}

// MarkFirstSyncDone transitions a wallet from NEW to OLD once its first
// full position load has completed.
func (r *WalletRepo) MarkFirstSyncDone(walletsID uint64) error {
	err := r.DB.Model(&models.Wallet{}).Where("walletsid = ?", walletsID).
		Updates(map[string]any{"wallettype": models.WalletTypeOld, "lastupdatedat": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("mark wallet first sync done: %w", err)
	}
	return nil
}
