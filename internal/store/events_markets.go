package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"polymarket-ingestor/internal/models"
)

// EventMarketRepo persists events and their constituent markets.
type EventMarketRepo struct {
	*DB
}

func NewEventMarketRepo(db *DB) *EventMarketRepo { return &EventMarketRepo{DB: db} }

// UpsertEvent inserts or refreshes an event by slug.
func (r *EventMarketRepo) UpsertEvent(e *models.Event) error {
	e.LastUpdatedAt = time.Now().UTC()
	result := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "category", "startdate", "enddate",
			"marketcreatedat", "marketupdatedat", "lastupdatedat",
		}),
	}).Create(e)
	if result.Error != nil {
		return fmt.Errorf("upsert event: %w", result.Error)
	}
	return nil
}

// UpsertMarket inserts or refreshes a market by its platform condition ID.
func (r *EventMarketRepo) UpsertMarket(m *models.Market) error {
	m.LastUpdatedAt = time.Now().UTC()
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platformmarketid"}},
		DoUpdates: clause.AssignmentColumns([]string{"eventsid", "question", "closed", "lastupdatedat"}),
	}).Create(m)
	if result.Error != nil {
		return fmt.Errorf("upsert market: %w", result.Error)
	}
	return nil
}

// GetEventBySlug returns an event if already tracked.
func (r *EventMarketRepo) GetEventBySlug(slug string) (*models.Event, error) {
	var e models.Event
	err := r.DB.Where("slug = ?", slug).First(&e).Error
	if err != nil {
		return nil, fmt.Errorf("get event by slug: %w", err)
	}
	return &e, nil
}

// GetMarketByID returns a market by its internal surrogate key — used to
// resolve a position's marketsid back to the platform condition ID an
// upstream response keys on.
func (r *EventMarketRepo) GetMarketByID(marketsID uint64) (*models.Market, error) {
	var m models.Market
	err := r.DB.Where("marketsid = ?", marketsID).First(&m).Error
	if err != nil {
		return nil, fmt.Errorf("get market by id: %w", err)
	}
	return &m, nil
}

// GetMarketByPlatformID returns a market if already tracked.
func (r *EventMarketRepo) GetMarketByPlatformID(platformMarketID string) (*models.Market, error) {
	var m models.Market
	err := r.DB.Where("platformmarketid = ?", platformMarketID).First(&m).Error
	if err != nil {
		return nil, fmt.Errorf("get market by platform id: %w", err)
	}
	return &m, nil
}

// StaleEvents returns events not refreshed since the given cutoff, for the
// event/market refresh scheduler to re-poll.
func (r *EventMarketRepo) StaleEvents(cutoff time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.DB.Where("lastupdatedat < ?", cutoff).Order("lastupdatedat ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list stale events: %w", err)
	}
	return events, nil
}
