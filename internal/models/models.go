// Package models declares the GORM-tagged entity structs persisted by the
// ingestion pipeline. Field names and semantics are grounded on the
// upstream Django models this system reads and writes; decimal columns use
// shopspring/decimal, the same fixed-point type the rate-limited client's
// teacher already depends on, via GORM's Scanner/Valuer integration.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a tracked position.
type PositionStatus int

const (
	PositionOpen PositionStatus = iota
	PositionClosed
	// PositionClosedNeedData marks a position upstream has settled but whose
	// final realizedPnl hasn't been confirmed by the closed-position
	// enrichment pass yet. No reconciliation path writes this value today —
	// a disappeared-from-upstream position stays OPEN until enrichment
	// flips it straight to CLOSED — but it is part of the tracked state
	// space for readers that classify positions by settlement confidence.
	PositionClosedNeedData
)

// TradeStatus tracks a position's progress through the trade-sync and
// realized-PnL recompute pipeline.
type TradeStatus int

const (
	TradeStatusPending TradeStatus = iota
	TradeStatusNeedToPullTrades
	TradeStatusTradesPulled
	TradeStatusClosedNeedData
	TradeStatusError
	TradeStatusNeedToCalculatePnl
	TradeStatusSynced
)

// WalletType distinguishes newly-discovered wallets (still pending their
// first full position load) from established ones on the recurring
// position-update cadence.
type WalletType int

const (
	WalletTypeNew WalletType = iota
	WalletTypeOld
)

// Wallet is a discovered smart-money address under tracking.
type Wallet struct {
	WalletsID      uint64          `gorm:"column:walletsid;primaryKey;autoIncrement"`
	ProxyWallet    string          `gorm:"column:proxywallet;type:varchar(66);uniqueIndex;not null"`
	Username       string          `gorm:"column:username;type:varchar(128)"`
	XUsername      string          `gorm:"column:xusername;type:varchar(128)"`
	ProfileImage   string          `gorm:"column:profileimage;type:varchar(512)"`
	WalletType     WalletType      `gorm:"column:wallettype;not null"`
	IsActive       bool            `gorm:"column:isactive;not null;default:true"`
	CombinedPnl    decimal.Decimal `gorm:"column:combinedpnl;type:decimal(20,2)"`
	TradeCount     int             `gorm:"column:tradecount;not null;default:0"`
	PositionCount  int             `gorm:"column:positioncount;not null;default:0"`
	LastUpdatedAt  time.Time       `gorm:"column:lastupdatedat;index"`
	CreatedAt      time.Time       `gorm:"column:createdat;autoCreateTime"`
}

func (Wallet) TableName() string { return "wallets" }

// WalletCategoryStat tracks per-category discovery provenance for a wallet
// — the leaderboard categories (politics, sports, ...) it was surfaced
// under and the rank/PnL observed in each.
type WalletCategoryStat struct {
	WalletCategoryStatsID uint64          `gorm:"column:walletcategorystatsid;primaryKey;autoIncrement"`
	WalletsID             uint64          `gorm:"column:walletsid;uniqueIndex:idx_wallet_category;not null"`
	Category              string          `gorm:"column:category;type:varchar(32);uniqueIndex:idx_wallet_category;not null"`
	LeaderboardRank        int             `gorm:"column:leaderboardrank"`
	LeaderboardPnl        decimal.Decimal `gorm:"column:leaderboardpnl;type:decimal(20,2)"`
	DiscoveredAt          time.Time       `gorm:"column:discoveredat;autoCreateTime"`
}

func (WalletCategoryStat) TableName() string { return "wallet_category_stats" }

// EventCategory is the closed set of top-level categories an event's tags
// are classified into.
type EventCategory string

const (
	CategoryPolitics      EventCategory = "POLITICS"
	CategorySports        EventCategory = "SPORTS"
	CategoryCrypto        EventCategory = "CRYPTO"
	CategoryBusiness      EventCategory = "BUSINESS"
	CategoryEntertainment EventCategory = "ENTERTAINMENT"
	CategoryScience       EventCategory = "SCIENCE"
	CategoryOthers        EventCategory = "OTHERS"
)

// Event groups one or more Markets under a common slug (e.g. an election
// with per-candidate binary markets).
type Event struct {
	EventsID         uint64        `gorm:"column:eventsid;primaryKey;autoIncrement"`
	Slug             string        `gorm:"column:slug;type:varchar(255);uniqueIndex;not null"`
	Title            string        `gorm:"column:title;type:varchar(512)"`
	Category         EventCategory `gorm:"column:category;type:varchar(32);not null;default:OTHERS"`
	StartDate        *time.Time    `gorm:"column:startdate"`
	EndDate          *time.Time    `gorm:"column:enddate;index"`
	MarketCreatedAt  *time.Time    `gorm:"column:marketcreatedat"`
	MarketUpdatedAt  *time.Time    `gorm:"column:marketupdatedat"`
	LastUpdatedAt    time.Time     `gorm:"column:lastupdatedat"`
	CreatedAt        time.Time     `gorm:"column:createdat;autoCreateTime"`
}

func (Event) TableName() string { return "events" }

// Market is a single binary (Yes/No) prediction market belonging to an
// Event, identified upstream by its condition ID.
type Market struct {
	MarketsID         uint64    `gorm:"column:marketsid;primaryKey;autoIncrement"`
	EventsID          uint64    `gorm:"column:eventsid;index;not null"`
	PlatformMarketID  string    `gorm:"column:platformmarketid;type:varchar(80);uniqueIndex;not null"`
	Question          string    `gorm:"column:question;type:varchar(512)"`
	Closed            bool      `gorm:"column:closed;not null;default:false"`
	LastUpdatedAt     time.Time `gorm:"column:lastupdatedat"`
	CreatedAt         time.Time `gorm:"column:createdat;autoCreateTime"`
}

func (Market) TableName() string { return "markets" }

// Position is one wallet's holding in one outcome ("Yes"/"No") of one
// market. The calculated* fields are market-wise duplicated: the trade-sync
// and current-value recompute passes write the SAME value to every outcome
// row of a given (wallet, market) pair, so any one position is a
// representative sample of the whole market — readers must never sum
// calculated* across the outcomes of one market, only across markets.
//
// apiRealizedPnl carries the upstream snapshot's own reported realizedPnl,
// trusted as-is for closed positions; realizedpnl is this system's own
// calculatedAmountOut-minus-calculatedAmountInvested figure for positions
// that went through trade sync, per TRADES_SYNCED's testable guarantee.
type Position struct {
	PositionsID              uint64          `gorm:"column:positionsid;primaryKey;autoIncrement"`
	WalletsID                uint64          `gorm:"column:walletsid;uniqueIndex:idx_wallet_market_outcome;not null"`
	MarketsID                uint64          `gorm:"column:marketsid;uniqueIndex:idx_wallet_market_outcome;not null"`
	Outcome                  string          `gorm:"column:outcome;type:varchar(16);uniqueIndex:idx_wallet_market_outcome;not null"`
	PositionStatus           PositionStatus  `gorm:"column:positionstatus;not null;default:0"`
	TradeStatus              TradeStatus     `gorm:"column:tradestatus;not null;default:1;index"`
	TotalShares              decimal.Decimal `gorm:"column:totalshares;type:decimal(28,6)"`
	CurrentShares            decimal.Decimal `gorm:"column:currentshares;type:decimal(28,6)"`
	AverageEntryPrice        decimal.Decimal `gorm:"column:averageentryprice;type:decimal(10,6)"`
	AmountSpent              decimal.Decimal `gorm:"column:amountspent;type:decimal(20,2)"`
	AmountRemaining          decimal.Decimal `gorm:"column:amountremaining;type:decimal(20,2)"`
	RealizedPnl              decimal.Decimal `gorm:"column:realizedpnl;type:decimal(20,2)"`
	ApiRealizedPnl           decimal.Decimal `gorm:"column:apirealizedpnl;type:decimal(20,2)"`
	CalculatedAmountInvested decimal.Decimal `gorm:"column:calculatedamountinvested;type:decimal(20,2)"`
	CalculatedAmountOut      decimal.Decimal `gorm:"column:calculatedamountout;type:decimal(20,2)"`
	CalculatedCurrentValue   decimal.Decimal `gorm:"column:calculatedcurrentvalue;type:decimal(20,2)"`
	LastUpdatedAt            time.Time       `gorm:"column:lastupdatedat;index"`
	CreatedAt                time.Time       `gorm:"column:createdat;autoCreateTime"`
}

func (Position) TableName() string { return "positions" }

// TradeType enumerates the upstream activity types the trade aggregator
// understands.
type TradeType string

const (
	TradeTypeBuy    TradeType = "BUY"
	TradeTypeSell   TradeType = "SELL"
	TradeTypeMerge  TradeType = "MERGE"
	TradeTypeSplit  TradeType = "SPLIT"
	TradeTypeRedeem TradeType = "REDEEM"
)

// Trade is one day's aggregated activity for a (wallet, market, outcome,
// tradeType) tuple — never one row per raw fill, per the aggregation
// design.
type Trade struct {
	TradesID         uint64          `gorm:"column:tradesid;primaryKey;autoIncrement"`
	WalletsID        uint64          `gorm:"column:walletsid;uniqueIndex:idx_trade_key;not null"`
	MarketsID        uint64          `gorm:"column:marketsid;uniqueIndex:idx_trade_key;not null"`
	Outcome          string          `gorm:"column:outcome;type:varchar(16);uniqueIndex:idx_trade_key;not null"`
	TradeType        TradeType       `gorm:"column:tradetype;type:varchar(16);uniqueIndex:idx_trade_key;not null"`
	TradeDate        time.Time       `gorm:"column:tradedate;uniqueIndex:idx_trade_key;not null"`
	TotalShares      decimal.Decimal `gorm:"column:totalshares;type:decimal(28,6)"`
	TotalAmount      decimal.Decimal `gorm:"column:totalamount;type:decimal(20,2)"`
	TransactionCount int             `gorm:"column:transactioncount;not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:createdat;autoCreateTime"`
}

func (Trade) TableName() string { return "trades" }

// Batch tracks the trade-sync watermark for one (wallet, market) pair.
type Batch struct {
	BatchID           uint64     `gorm:"column:batchid;primaryKey;autoIncrement"`
	WalletsID         uint64     `gorm:"column:walletsid;uniqueIndex:idx_batch_key;not null"`
	MarketsID         uint64     `gorm:"column:marketsid;uniqueIndex:idx_batch_key;not null"`
	LatestFetchedTime *time.Time `gorm:"column:latestfetchedtime"`
	LastUpdatedAt     time.Time  `gorm:"column:lastupdatedat"`
	CreatedAt         time.Time  `gorm:"column:createdat;autoCreateTime"`
}

func (Batch) TableName() string { return "batches" }

// WalletPnl is one wallet's PnL and winrate summary over a rolling period
// (30/60/90 days), recomputed on every Wallet PnL scheduler tick.
type WalletPnl struct {
	WalletPnlID             uint64          `gorm:"column:walletpnlid;primaryKey;autoIncrement"`
	WalletsID               uint64          `gorm:"column:walletsid;uniqueIndex:idx_wallet_period;not null"`
	Period                  int             `gorm:"column:period;uniqueIndex:idx_wallet_period;not null"`
	Start                   time.Time       `gorm:"column:start;not null"`
	End                     time.Time       `gorm:"column:end;not null"`
	OpenAmountInvested      decimal.Decimal `gorm:"column:openamountinvested;type:decimal(20,2)"`
	OpenAmountOut           decimal.Decimal `gorm:"column:openamountout;type:decimal(20,2)"`
	OpenCurrentValue        decimal.Decimal `gorm:"column:opencurrentvalue;type:decimal(20,2)"`
	ClosedAmountInvested    decimal.Decimal `gorm:"column:closedamountinvested;type:decimal(20,2)"`
	ClosedAmountOut         decimal.Decimal `gorm:"column:closedamountout;type:decimal(20,2)"`
	ClosedCurrentValue      decimal.Decimal `gorm:"column:closedcurrentvalue;type:decimal(20,2)"`
	TotalInvestedAmount     decimal.Decimal `gorm:"column:totalinvestedamount;type:decimal(20,2)"`
	TotalAmountOut          decimal.Decimal `gorm:"column:totalamountout;type:decimal(20,2)"`
	CurrentValue            decimal.Decimal `gorm:"column:currentvalue;type:decimal(20,2)"`
	RealizedWinrateOdds     string          `gorm:"column:realizedwinrateodds;type:varchar(16)"`
	RealizedWinrate         *decimal.Decimal `gorm:"column:realizedwinrate;type:decimal(6,4)"`
	UnrealizedWinrateOdds   string          `gorm:"column:unrealizedwinrateodds;type:varchar(16)"`
	UnrealizedWinrate       *decimal.Decimal `gorm:"column:unrealizedwinrate;type:decimal(6,4)"`
	HighVolumeWinrateOdds   string          `gorm:"column:highvolumewinrateodds;type:varchar(16)"`
	HighVolumeWinrate       *decimal.Decimal `gorm:"column:highvolumewinrate;type:decimal(6,4)"`
	LastUpdatedAt           time.Time       `gorm:"column:lastupdatedat"`
	CreatedAt               time.Time       `gorm:"column:createdat;autoCreateTime"`
}

func (WalletPnl) TableName() string { return "wallet_pnl" }

// All returns every model pointer AutoMigrate needs to register, in
// dependency order (referenced tables before referencing ones).
func All() []any {
	return []any{
		&Wallet{}, &WalletCategoryStat{},
		&Event{}, &Market{},
		&Position{}, &Trade{}, &Batch{},
		&WalletPnl{},
	}
}
