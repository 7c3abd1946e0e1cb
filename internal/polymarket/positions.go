package polymarket

import (
	"context"
	"errors"
	"fmt"

	"polymarket-ingestor/internal/apierr"
	"polymarket-ingestor/internal/httpclient"
)

var errNoResults = errors.New("no results")

const (
	openPositionsPageSize   = 500
	closedPositionsPageSize = 50
)

// DataAPIClient reads positions and activity for a wallet from the Data
// API.
type DataAPIClient struct {
	http *httpclient.Client
}

// NewDataAPIClient creates a Data API adapter over the shared HTTP
// client.
func NewDataAPIClient(http *httpclient.Client) *DataAPIClient {
	return &DataAPIClient{http: http}
}

// OpenPositions pages through every open position for a wallet. A page
// shorter than openPositionsPageSize signals the end of the list.
func (c *DataAPIClient) OpenPositions(ctx context.Context, proxyWallet string) ([]OpenPosition, error) {
	var all []OpenPosition
	offset := 0
	for {
		var page []OpenPosition
		err := c.http.Get(ctx, httpclient.ClassPositions, "/positions", map[string]string{
			"user":   proxyWallet,
			"closed": "false",
			"limit":  fmt.Sprintf("%d", openPositionsPageSize),
			"offset": fmt.Sprintf("%d", offset),
		}, &page)
		if err != nil {
			if errors.Is(err, apierr.ErrNotFound) {
				return all, nil
			}
			return nil, fmt.Errorf("fetch open positions for %s at offset %d: %w", proxyWallet, offset, err)
		}
		all = append(all, page...)
		if len(page) < openPositionsPageSize {
			break
		}
		offset += openPositionsPageSize
	}
	return all, nil
}

// ClosedPositions pages through every closed position for a wallet.
func (c *DataAPIClient) ClosedPositions(ctx context.Context, proxyWallet string) ([]ClosedPosition, error) {
	var all []ClosedPosition
	offset := 0
	for {
		var page []ClosedPosition
		err := c.http.Get(ctx, httpclient.ClassClosedPositions, "/positions", map[string]string{
			"user":   proxyWallet,
			"closed": "true",
			"limit":  fmt.Sprintf("%d", closedPositionsPageSize),
			"offset": fmt.Sprintf("%d", offset),
		}, &page)
		if err != nil {
			if errors.Is(err, apierr.ErrNotFound) {
				return all, nil
			}
			return nil, fmt.Errorf("fetch closed positions for %s at offset %d: %w", proxyWallet, offset, err)
		}
		all = append(all, page...)
		if len(page) < closedPositionsPageSize {
			break
		}
		offset += closedPositionsPageSize
	}
	return all, nil
}

// ClosedPositionsByMarket pages through a wallet's closed positions
// restricted to one market — the endpoint the closed-position enrichment
// pass uses to fetch a fresh realizedPnl once a position's market has
// stopped appearing in the open-positions response.
func (c *DataAPIClient) ClosedPositionsByMarket(ctx context.Context, proxyWallet, conditionID string) ([]ClosedPosition, error) {
	var all []ClosedPosition
	offset := 0
	for {
		var page []ClosedPosition
		err := c.http.Get(ctx, httpclient.ClassClosedPositions, "/positions", map[string]string{
			"user":   proxyWallet,
			"market": conditionID,
			"closed": "true",
			"limit":  fmt.Sprintf("%d", closedPositionsPageSize),
			"offset": fmt.Sprintf("%d", offset),
		}, &page)
		if err != nil {
			if errors.Is(err, apierr.ErrNotFound) {
				return all, nil
			}
			return nil, fmt.Errorf("fetch closed positions for %s/%s at offset %d: %w", proxyWallet, conditionID, offset, err)
		}
		all = append(all, page...)
		if len(page) < closedPositionsPageSize {
			break
		}
		offset += closedPositionsPageSize
	}
	return all, nil
}

// Activity pages through a wallet's raw trade/merge/split/redeem activity
// in one market, starting strictly after sinceUnix (the batch's
// watermark) so repeated calls never re-fetch already-synced activity.
func (c *DataAPIClient) Activity(ctx context.Context, proxyWallet, conditionID string, sinceUnix int64) ([]Activity, error) {
	var all []Activity
	offset := 0
	const pageSize = 500
	for {
		var page []Activity
		err := c.http.Get(ctx, httpclient.ClassTrades, "/activity", map[string]string{
			"user":   proxyWallet,
			"market": conditionID,
			"start":  fmt.Sprintf("%d", sinceUnix),
			"limit":  fmt.Sprintf("%d", pageSize),
			"offset": fmt.Sprintf("%d", offset),
		}, &page)
		if err != nil {
			if errors.Is(err, apierr.ErrNotFound) {
				return all, nil
			}
			return nil, fmt.Errorf("fetch activity for %s/%s at offset %d: %w", proxyWallet, conditionID, offset, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}
	return all, nil
}
