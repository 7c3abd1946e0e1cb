package polymarket

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"polymarket-ingestor/internal/httpclient"
)

// LeaderboardClient reads the per-category PnL leaderboard used to seed
// wallet discovery.
type LeaderboardClient struct {
	http     *httpclient.Client
	pageSize int
}

// NewLeaderboardClient creates a leaderboard adapter over the shared HTTP
// client.
func NewLeaderboardClient(http *httpclient.Client, pageSize int) *LeaderboardClient {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &LeaderboardClient{http: http, pageSize: pageSize}
}

// FetchCategory pages through a category's leaderboard from the top,
// stopping as soon as a page's lowest PnL falls below pnlFloor (entries
// are rank-ordered, so everything after is below the floor too) or a
// short page signals the end of the list.
func (c *LeaderboardClient) FetchCategory(ctx context.Context, category string, pnlFloor decimal.Decimal) ([]LeaderboardEntry, error) {
	var all []LeaderboardEntry
	offset := 0
	for {
		var page []LeaderboardEntry
		err := c.http.Get(ctx, httpclient.ClassGeneral, "/leaderboard", map[string]string{
			"category": category,
			"limit":    fmt.Sprintf("%d", c.pageSize),
			"offset":   fmt.Sprintf("%d", offset),
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("fetch leaderboard page for %s at offset %d: %w", category, offset, err)
		}
		if len(page) == 0 {
			break
		}

		stop := false
		for _, entry := range page {
			if entry.Pnl.LessThan(pnlFloor) {
				stop = true
				break
			}
			all = append(all, entry)
		}
		if stop || len(page) < c.pageSize {
			break
		}
		offset += c.pageSize
	}
	return all, nil
}
