package polymarket

import (
	"context"
	"fmt"

	"polymarket-ingestor/internal/httpclient"
)

// GammaClient reads events and markets from the Gamma API.
type GammaClient struct {
	http *httpclient.Client
}

// NewGammaClient creates a Gamma API adapter over the shared HTTP client.
func NewGammaClient(http *httpclient.Client) *GammaClient {
	return &GammaClient{http: http}
}

// EventBySlug fetches one event (with its nested markets) by slug.
func (c *GammaClient) EventBySlug(ctx context.Context, slug string) (*EventResponse, error) {
	var events []EventResponse
	err := c.http.Get(ctx, httpclient.ClassGeneral, "/events", map[string]string{"slug": slug}, &events)
	if err != nil {
		return nil, fmt.Errorf("fetch event %s: %w", slug, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event %s: %w", slug, errNoResults)
	}
	return &events[0], nil
}

// MarketByConditionID fetches one market by its condition ID.
func (c *GammaClient) MarketByConditionID(ctx context.Context, conditionID string) (*MarketResponse, error) {
	var markets []MarketResponse
	err := c.http.Get(ctx, httpclient.ClassGeneral, "/markets", map[string]string{"condition_id": conditionID}, &markets)
	if err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", conditionID, err)
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("market %s: %w", conditionID, errNoResults)
	}
	return &markets[0], nil
}
