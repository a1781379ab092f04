// Package survival implements the adaptive risk state machine that
// gates every trade. The brain tracks recent outcomes, moves between
// risk tiers and scales position sizing accordingly.
package survival

import (
	"sync"

	"github.com/dnieto/quickedge/internal/domain"
)

const (
	baselineKelly   = 1.0
	thrivingKelly   = 1.2
	thrivingRelief  = 0.5 // threshold reduction while thriving
	thresholdFloor  = 1.0
	minThriveSample = 10 // outcomes required before THRIVING is reachable
	maxTierChanges  = 100
)

// Config carries the tunables of the state machine. Zero values are
// replaced by the defaults used in config validation, so a Brain built
// straight from config.Survival is always well formed.
type Config struct {
	InitialCapital     float64
	MinEdgePct         float64
	MaxBetPct          float64
	KellyFraction      float64
	MaxPositions       int
	LossStreak         int
	WinStreak          int
	ThriveWinRate      float64
	ThresholdStep      float64
	MaxKellyMultiplier float64
	HistorySize        int
}

// Brain is the single authority over risk state. All methods are safe
// for concurrent use; mutations happen under one mutex so approval and
// outcome reporting never interleave.
type Brain struct {
	mu  sync.Mutex
	cfg Config

	tier            domain.Tier
	capital         float64
	edgeThreshold   float64
	kellyMultiplier float64

	consecWins   int
	consecLosses int

	history []domain.Outcome
	seen    map[string]struct{}
	wins    int
	losses  int
	pnl     float64

	changes []domain.TierChange

	onTierChange func(domain.TierChange)
}

// NewBrain builds a brain starting in HEALTHY with baseline sizing.
func NewBrain(cfg Config) *Brain {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 200
	}
	if cfg.LossStreak <= 0 {
		cfg.LossStreak = 4
	}
	if cfg.WinStreak <= 0 {
		cfg.WinStreak = 3
	}
	return &Brain{
		cfg:             cfg,
		tier:            domain.TierHealthy,
		capital:         cfg.InitialCapital,
		edgeThreshold:   cfg.MinEdgePct,
		kellyMultiplier: baselineKelly,
		seen:            make(map[string]struct{}),
	}
}

// OnTierChange registers a callback invoked after every transition,
// outside the brain lock. Used for alerting.
func (b *Brain) OnTierChange(fn func(domain.TierChange)) {
	b.mu.Lock()
	b.onTierChange = fn
	b.mu.Unlock()
}

// EdgeThreshold returns the current minimum edge, in percent, that a
// signal must clear.
func (b *Brain) EdgeThreshold() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.edgeThreshold
}

// Approve decides whether a signal may become a trade and, if so, the
// fraction of capital to commit. openPositions is the caller's count
// of currently pending trades.
func (b *Brain) Approve(sig domain.EdgeSignal, openPositions int) (float64, bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if openPositions >= b.maxPositions() {
		return 0, false, "position limit reached"
	}
	if sig.Magnitude() < b.edgeThreshold {
		return 0, false, "edge below threshold"
	}
	if b.capital <= 0 {
		return 0, false, "capital exhausted"
	}

	frac := (sig.Magnitude() / 100) * b.cfg.KellyFraction * sig.Confidence * b.kellyMultiplier
	if frac > b.cfg.MaxBetPct {
		frac = b.cfg.MaxBetPct
	}
	if frac <= 0 {
		return 0, false, "zero size"
	}
	return frac, true, ""
}

func (b *Brain) maxPositions() int {
	if b.cfg.MaxPositions > 0 {
		return b.cfg.MaxPositions
	}
	return 10
}
