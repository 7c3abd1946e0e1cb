package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"polymarket-ingestor/internal/category"
	"polymarket-ingestor/internal/models"
	"polymarket-ingestor/internal/polymarket"
	"polymarket-ingestor/internal/store"
)

// EventsScheduler refreshes tracked events and their markets from Gamma.
type EventsScheduler struct {
	gamma   *polymarket.GammaClient
	repo    *store.EventMarketRepo
	workers int
	staleAfter time.Duration
}

// NewEventsScheduler creates the event/market refresh job.
func NewEventsScheduler(gamma *polymarket.GammaClient, repo *store.EventMarketRepo, workers int, staleAfter time.Duration) *EventsScheduler {
	return &EventsScheduler{gamma: gamma, repo: repo, workers: workers, staleAfter: staleAfter}
}

// Tick refreshes every event not updated since staleAfter, fanning out
// across a bounded worker pool.
func (s *EventsScheduler) Tick(ctx context.Context) (Stats, error) {
	stale, err := s.repo.StaleEvents(time.Now().UTC().Add(-s.staleAfter))
	if err != nil {
		return Stats{}, fmt.Errorf("list stale events: %w", err)
	}
	if len(stale) == 0 {
		return Stats{Message: "no stale events"}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	var succeeded, failed int
	for _, e := range stale {
		e := e
		g.Go(func() error {
			err := s.refreshOne(gctx, e.Slug)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
			mu.Unlock()
			return nil // keep processing other events; don't abort the whole tick
		})
	}
	_ = g.Wait()

	return Stats{Processed: len(stale), Succeeded: succeeded, Failed: failed}, nil
}

func (s *EventsScheduler) refreshOne(ctx context.Context, slug string) error {
	resp, err := s.gamma.EventBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("fetch event %s: %w", slug, err)
	}

	tags := make([]string, 0, len(resp.Tags))
	for _, t := range resp.Tags {
		tags = append(tags, t.Label)
	}

	event := models.Event{
		Slug:            resp.Slug,
		Title:           resp.Title,
		Category:        category.Classify(tags),
		StartDate:       resp.StartDate,
		EndDate:         resp.EndDate,
		MarketCreatedAt: resp.CreatedAt,
		MarketUpdatedAt: resp.UpdatedAt,
	}
	if err := s.repo.UpsertEvent(&event); err != nil {
		return fmt.Errorf("upsert event %s: %w", slug, err)
	}

	stored, err := s.repo.GetEventBySlug(slug)
	if err != nil {
		return fmt.Errorf("reload event %s: %w", slug, err)
	}

	for _, m := range resp.Markets {
		market := models.Market{
			EventsID:         stored.EventsID,
			PlatformMarketID: m.ConditionID,
			Question:         m.Question,
			Closed:           m.Closed,
		}
		if err := s.repo.UpsertMarket(&market); err != nil {
			return fmt.Errorf("upsert market %s: %w", m.ConditionID, err)
		}
	}
	return nil
}
