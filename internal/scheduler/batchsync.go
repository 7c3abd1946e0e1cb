package scheduler

import (
	"context"
	"fmt"

	"polymarket-ingestor/internal/store"
)

// BatchSyncScheduler is the idempotent maintenance pass that ensures every
// (wallet, market) pair with an open position has a batch watermark row to
// read from, so the trade sync pipeline never has to special-case a
// missing batch.
type BatchSyncScheduler struct {
	batchRepo *store.BatchRepo
}

// NewBatchSyncScheduler creates the batch sync job.
func NewBatchSyncScheduler(batchRepo *store.BatchRepo) *BatchSyncScheduler {
	return &BatchSyncScheduler{batchRepo: batchRepo}
}

// Tick inserts a zero-watermark batch row for every (wallet, market) pair
// still missing one.
func (s *BatchSyncScheduler) Tick(ctx context.Context) (Stats, error) {
	if err := s.batchRepo.AddMissingInitialBatchRecords(); err != nil {
		return Stats{}, fmt.Errorf("add missing initial batch records: %w", err)
	}
	return Stats{Message: "batch records reconciled"}, nil
}
