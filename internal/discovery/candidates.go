package discovery

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"polymarket-ingestor/internal/polymarket"
)

// LeaderboardFetcher fetches one category's leaderboard page set.
type LeaderboardFetcher interface {
	FetchCategory(ctx context.Context, category string, pnlFloor decimal.Decimal) ([]polymarket.LeaderboardEntry, error)
}

// Candidate is a wallet surfaced by the leaderboard, with the set of
// categories (and per-category rank/PnL) it was seen under.
type Candidate struct {
	ProxyWallet   string
	Username      string
	ProfileImage  string
	CategoryStats map[string]polymarket.LeaderboardEntry
}

// CandidateFetcher walks the leaderboard across configured categories and
// dedups by proxy wallet, accumulating every category a wallet appears
// under.
type CandidateFetcher struct {
	leaderboard LeaderboardFetcher
	categories  []string
	blacklist   map[string]bool
	pnlFloor    decimal.Decimal
}

// NewCandidateFetcher creates a fetcher over the configured categories,
// blacklist, and PnL floor.
func NewCandidateFetcher(leaderboard LeaderboardFetcher, categories, blacklist []string, pnlFloor decimal.Decimal) *CandidateFetcher {
	bl := make(map[string]bool, len(blacklist))
	for _, b := range blacklist {
		bl[b] = true
	}
	return &CandidateFetcher{leaderboard: leaderboard, categories: categories, blacklist: bl, pnlFloor: pnlFloor}
}

// Fetch returns every distinct candidate seen across all configured
// categories, blacklisted wallets excluded.
func (f *CandidateFetcher) Fetch(ctx context.Context) ([]Candidate, error) {
	byWallet := make(map[string]*Candidate)

	for _, category := range f.categories {
		entries, err := f.leaderboard.FetchCategory(ctx, category, f.pnlFloor)
		if err != nil {
			return nil, fmt.Errorf("fetch leaderboard category %s: %w", category, err)
		}
		for _, entry := range entries {
			if f.blacklist[entry.ProxyWallet] {
				continue
			}
			c, ok := byWallet[entry.ProxyWallet]
			if !ok {
				c = &Candidate{
					ProxyWallet:   entry.ProxyWallet,
					Username:      entry.Username,
					ProfileImage:  entry.ProfileImage,
					CategoryStats: make(map[string]polymarket.LeaderboardEntry),
				}
				byWallet[entry.ProxyWallet] = c
			}
			c.CategoryStats[category] = entry
		}
	}

	candidates := make([]Candidate, 0, len(byWallet))
	for _, c := range byWallet {
		candidates = append(candidates, *c)
	}
	return candidates, nil
}
