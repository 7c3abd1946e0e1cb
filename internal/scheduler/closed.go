package scheduler

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"polymarket-ingestor/internal/polymarket"
	"polymarket-ingestor/internal/store"
)

// ClosedEnrichmentScheduler fetches the final realizedPnl for positions
// the reconciliation scheduler flagged POSITION_CLOSED_NEED_DATA, one
// upstream call per (wallet, market) group.
type ClosedEnrichmentScheduler struct {
	dataAPI *polymarket.DataAPIClient
	posRepo *store.PositionRepo
	workers int
}

// NewClosedEnrichmentScheduler creates the closed-position enrichment job.
func NewClosedEnrichmentScheduler(dataAPI *polymarket.DataAPIClient, posRepo *store.PositionRepo, workers int) *ClosedEnrichmentScheduler {
	return &ClosedEnrichmentScheduler{dataAPI: dataAPI, posRepo: posRepo, workers: workers}
}

type closedGroupKey struct {
	proxyWallet string
	platformID  string
}

// Tick groups every NEED_DATA position by (proxyWallet, platformMarketID),
// fetches the market's closed-position report once per group, and applies
// the matched realizedPnl back onto the stored rows.
func (s *ClosedEnrichmentScheduler) Tick(ctx context.Context) (Stats, error) {
	rows, err := s.posRepo.NeedingClosedData()
	if err != nil {
		return Stats{}, fmt.Errorf("list positions needing closed data: %w", err)
	}
	if len(rows) == 0 {
		return Stats{Message: "no positions needing closed data"}, nil
	}

	groups := make(map[closedGroupKey][]store.ClosedNeedDataRow)
	for _, r := range rows {
		k := closedGroupKey{proxyWallet: r.ProxyWallet, platformID: r.PlatformID}
		groups[k] = append(groups[k], r)
	}

	type job struct {
		key  closedGroupKey
		rows []store.ClosedNeedDataRow
	}
	jobs := make([]job, 0, len(groups))
	for k, rs := range groups {
		jobs = append(jobs, job{key: k, rows: rs})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	var succeeded, failed int

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			err := s.enrichGroup(gctx, j.key, j.rows)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
			mu.Unlock()
			return nil // one group's failure never aborts the rest of the tick
		})
	}
	_ = g.Wait()

	return Stats{Processed: len(jobs), Succeeded: succeeded, Failed: failed}, nil
}

// enrichGroup fetches one market's closed-position report for one wallet
// and applies it back onto the matching stored rows — first match by
// outcome wins when the upstream report carries duplicates.
func (s *ClosedEnrichmentScheduler) enrichGroup(ctx context.Context, key closedGroupKey, rows []store.ClosedNeedDataRow) error {
	reported, err := s.dataAPI.ClosedPositionsByMarket(ctx, key.proxyWallet, key.platformID)
	if err != nil {
		return fmt.Errorf("fetch closed positions for %s/%s: %w", key.proxyWallet, key.platformID, err)
	}

	byOutcome := make(map[string]polymarket.ClosedPosition, len(reported))
	for _, p := range reported {
		if _, matched := byOutcome[p.Outcome]; matched {
			continue // first match wins on duplicates
		}
		byOutcome[p.Outcome] = p
	}

	var updates []store.ClosedUpdate
	for _, row := range rows {
		p, ok := byOutcome[row.Outcome]
		if !ok {
			continue // upstream hasn't settled this outcome yet; retried next tick
		}
		updates = append(updates, store.ClosedUpdate{
			PositionsID:    row.PositionsID,
			ApiRealizedPnl: p.RealizedPnl,
		})
	}
	if len(updates) == 0 {
		return nil
	}
	return s.posRepo.MarkClosed(updates)
}
