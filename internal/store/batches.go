package store

import (
	"fmt"
	"time"

	"polymarket-ingestor/internal/models"
)

// BatchRepo tracks the trade-sync watermark for each (wallet, market) pair.
type BatchRepo struct {
	*DB
}

func NewBatchRepo(db *DB) *BatchRepo { return &BatchRepo{DB: db} }

// GetOrInit returns the batch row for (walletsID, marketsID), creating an
// empty one (no watermark yet, so the next sync fetches full history) if
// none exists.
func (r *BatchRepo) GetOrInit(walletsID, marketsID uint64) (*models.Batch, error) {
	var batch models.Batch
	err := r.DB.Where("walletsid = ? AND marketsid = ?", walletsID, marketsID).First(&batch).Error
	if err == nil {
		return &batch, nil
	}
	batch = models.Batch{WalletsID: walletsID, MarketsID: marketsID}
	if err := r.DB.Create(&batch).Error; err != nil {
		return nil, fmt.Errorf("init batch: %w", err)
	}
	return &batch, nil
}

// UpdateWatermark advances latestfetchedtime for a batch. Per the
// monotonic watermark invariant, callers must never pass a time earlier
// than the batch's current watermark.
func (r *BatchRepo) UpdateWatermark(batchID uint64, latestFetchedTime time.Time) error {
	err := r.DB.Model(&models.Batch{}).Where("batchid = ?", batchID).
		Updates(map[string]any{"latestfetchedtime": latestFetchedTime, "lastupdatedat": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("update batch watermark: %w", err)
	}
	return nil
}

// AddMissingInitialBatchRecords inserts a zero-watermark batch row for
// every (wallet, market) position pair that doesn't have one yet, so the
// trade sync pipeline always has a batch to read from.
func (r *BatchRepo) AddMissingInitialBatchRecords() error {
	sql := `
		INSERT INTO batches (walletsid, marketsid, lastupdatedat, createdat)
		SELECT DISTINCT p.walletsid, p.marketsid, NOW(), NOW()
		FROM positions p
		LEFT JOIN batches b ON b.walletsid = p.walletsid AND b.marketsid = p.marketsid
		WHERE b.batchid IS NULL`
	if err := r.DB.Exec(sql).Error; err != nil {
		return fmt.Errorf("add missing initial batch records: %w", err)
	}
	return nil
}
