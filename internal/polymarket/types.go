// Package polymarket implements typed adapters over the upstream
// Polymarket Data API, Gamma API, and Leaderboard, each wrapping a shared
// httpclient.Client. No adapter ever returns a raw map[string]any — every
// response is decoded into the structs below before it crosses the
// package boundary.
package polymarket

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaderboardEntry is one ranked wallet from the leaderboard endpoint for
// a single category.
type LeaderboardEntry struct {
	ProxyWallet  string          `json:"proxyWallet"`
	Username     string          `json:"name"`
	ProfileImage string          `json:"profileImage"`
	Rank         int             `json:"rank"`
	Pnl          decimal.Decimal `json:"amount"`
}

// EventResponse is the Gamma API's representation of an event.
type EventResponse struct {
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Tags            []TagResponse   `json:"tags"`
	StartDate       *time.Time      `json:"startDate"`
	EndDate         *time.Time      `json:"endDate"`
	CreatedAt       *time.Time      `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt"`
	Markets         []MarketResponse `json:"markets"`
}

// TagResponse is one tag attached to an event, used for category
// classification.
type TagResponse struct {
	Label string `json:"label"`
}

// MarketResponse is the Gamma API's representation of one binary market.
type MarketResponse struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Closed      bool   `json:"closed"`
}

// OpenPosition is one row of the Data API's open-positions response for a
// wallet.
type OpenPosition struct {
	ConditionID      string          `json:"conditionId"`
	EventSlug        string          `json:"eventSlug"`
	Outcome          string          `json:"outcome"`
	Size             decimal.Decimal `json:"size"`
	AvgPrice         decimal.Decimal `json:"avgPrice"`
	InitialValue     decimal.Decimal `json:"initialValue"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	CashPnl          decimal.Decimal `json:"cashPnl"`
	Redeemable       bool            `json:"redeemable"`
}

// ClosedPosition is one row of the Data API's closed-positions response.
type ClosedPosition struct {
	ConditionID  string          `json:"conditionId"`
	EventSlug    string          `json:"eventSlug"`
	Outcome      string          `json:"outcome"`
	RealizedPnl  decimal.Decimal `json:"realizedPnl"`
	AmountSpent  decimal.Decimal `json:"amountSpent"`
	EndDate      *time.Time      `json:"endDate"`
}

// Activity is one raw fill/merge/split/redeem event for a wallet in a
// market, as returned by the Data API's activity endpoint.
type Activity struct {
	ConditionID string          `json:"conditionId"`
	Type        string          `json:"type"` // TRADE, MERGE, SPLIT, REDEEM
	Side        string          `json:"side"` // BUY, SELL (only meaningful for TRADE)
	Outcome     string          `json:"outcome"`
	Size        decimal.Decimal `json:"size"`
	UsdcSize    decimal.Decimal `json:"usdcSize"`
	Timestamp   time.Time       `json:"timestamp"`
}
