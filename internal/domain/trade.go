package domain

import "time"

// TradeStatus is the lifecycle of a position, real or simulated.
type TradeStatus string

const (
	StatusPending  TradeStatus = "PENDING"
	StatusResolved TradeStatus = "RESOLVED"
)

// Trade is a sized position created on signal approval. Live and paper
// trades share one shape; Paper distinguishes the ledger they settle
// against. A trade transitions PENDING→RESOLVED exactly once and is
// immutable afterward.
type Trade struct {
	ID         string
	MarketID   string
	Question   string
	Direction  Direction
	EntryPrice float64 // token price paid
	Size       float64 // USDC committed
	Shares     float64 // Size / EntryPrice
	EdgePct    float64
	Confidence float64
	Tier       Tier // survival tier at entry
	Paper      bool
	OpenedAt   time.Time
	ExpiresAt  time.Time // market expiry; resolution is due after this

	Status          TradeStatus
	ResolvedAt      *time.Time
	ResolutionPrice float64
	PnL             float64
	Won             bool
}

// SettlePnL computes profit for a terminal YES price without mutating the
// trade. A YES position pays (price − entry) per share; a NO position pays
// the mirror image.
func (t Trade) SettlePnL(yesPrice float64) float64 {
	switch t.Direction {
	case DirectionYes:
		return (yesPrice - t.EntryPrice) * t.Shares
	default:
		return ((1 - yesPrice) - t.EntryPrice) * t.Shares
	}
}

// ResolutionDue reports whether the market behind this trade has expired
// and the trade is still awaiting settlement.
func (t Trade) ResolutionDue(now time.Time) bool {
	return t.Status == StatusPending && now.After(t.ExpiresAt)
}

// RunSummary is the per-run aggregate record persisted alongside trades.
type RunSummary struct {
	RunID       string
	Mode        string
	StartedAt   time.Time
	UpdatedAt   time.Time
	Trades      int
	Wins        int
	Losses      int
	WinRate     float64
	TotalPnL    float64
	Capital     float64
	TierChanges []TierChange
}
