package domain

import "time"

// Tier encodes the risk controller's current posture.
type Tier string

const (
	TierHealthy  Tier = "HEALTHY"
	TierWounded  Tier = "WOUNDED"
	TierThriving Tier = "THRIVING"
)

// Outcome is one resolved trade as recorded by the survival brain.
type Outcome struct {
	TradeID    string
	Won        bool
	PnL        float64
	RecordedAt time.Time
}

// TierChange records a tier transition for summaries and alerting.
type TierChange struct {
	From   Tier
	To     Tier
	Reason string
	At     time.Time
}

// SurvivalSnapshot is a read-only view of the brain's state, used for
// logging, alerts, and the run summary.
type SurvivalSnapshot struct {
	Tier              Tier
	Capital           float64
	ConsecutiveWins   int
	ConsecutiveLosses int
	EdgeThreshold     float64
	KellyMultiplier   float64
	Trades            int
	Wins              int
	Losses            int
	WinRate           float64 // over the bounded history
	TotalPnL          float64
}
