package survival

import (
	"log/slog"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// ReportOutcome feeds a resolved trade back into the state machine.
// Reporting the same trade id twice is a no-op, so replaying history
// or double resolution cannot skew the streaks.
func (b *Brain) ReportOutcome(o domain.Outcome) {
	b.mu.Lock()
	change, fn := b.applyOutcome(o)
	b.mu.Unlock()

	if change != nil && fn != nil {
		fn(*change)
	}
}

// RestoreHistory replays persisted outcomes, oldest first, rebuilding
// the tier and sizing state a previous run ended with.
func (b *Brain) RestoreHistory(outcomes []domain.Outcome) {
	for _, o := range outcomes {
		b.mu.Lock()
		b.applyOutcome(o)
		b.mu.Unlock()
	}
	slog.Info("survival state restored",
		"outcomes", len(outcomes),
		"tier", b.Snapshot().Tier,
	)
}

func (b *Brain) applyOutcome(o domain.Outcome) (*domain.TierChange, func(domain.TierChange)) {
	if _, dup := b.seen[o.TradeID]; dup {
		slog.Debug("duplicate outcome ignored", "trade_id", o.TradeID)
		return nil, nil
	}
	b.seen[o.TradeID] = struct{}{}

	b.history = append(b.history, o)
	if o.Won {
		b.wins++
		b.consecWins++
		b.consecLosses = 0
	} else {
		b.losses++
		b.consecLosses++
		b.consecWins = 0
	}
	b.capital += o.PnL
	b.pnl += o.PnL

	if len(b.history) > b.cfg.HistorySize {
		evicted := b.history[0]
		b.history = b.history[1:]
		delete(b.seen, evicted.TradeID)
		if evicted.Won {
			b.wins--
		} else {
			b.losses--
		}
	}

	change := b.evaluateTier(o.RecordedAt)
	return change, b.onTierChange
}

// evaluateTier runs the transition rules. Called with the lock held.
func (b *Brain) evaluateTier(at time.Time) *domain.TierChange {
	switch b.tier {
	case domain.TierHealthy:
		if b.consecLosses >= b.cfg.LossStreak {
			return b.toWounded(at)
		}
		if len(b.history) >= minThriveSample && b.winRate() >= b.cfg.ThriveWinRate {
			return b.toThriving(at)
		}
	case domain.TierThriving:
		if b.consecLosses >= b.cfg.LossStreak {
			return b.toWounded(at)
		}
	case domain.TierWounded:
		if b.consecWins >= b.cfg.WinStreak {
			return b.toHealthy(at)
		}
	}
	return nil
}

func (b *Brain) toWounded(at time.Time) *domain.TierChange {
	b.kellyMultiplier /= 2
	b.edgeThreshold += b.cfg.ThresholdStep
	if max := b.cfg.MinEdgePct + b.cfg.ThresholdStep; b.edgeThreshold > max {
		b.edgeThreshold = max
	}
	return b.record(domain.TierWounded, "loss streak", at)
}

func (b *Brain) toHealthy(at time.Time) *domain.TierChange {
	b.kellyMultiplier = baselineKelly
	b.edgeThreshold = b.cfg.MinEdgePct
	return b.record(domain.TierHealthy, "win streak recovery", at)
}

func (b *Brain) toThriving(at time.Time) *domain.TierChange {
	b.kellyMultiplier = thrivingKelly
	if b.cfg.MaxKellyMultiplier > 0 && b.kellyMultiplier > b.cfg.MaxKellyMultiplier {
		b.kellyMultiplier = b.cfg.MaxKellyMultiplier
	}
	b.edgeThreshold = b.cfg.MinEdgePct - thrivingRelief
	if b.edgeThreshold < thresholdFloor {
		b.edgeThreshold = thresholdFloor
	}
	return b.record(domain.TierThriving, "sustained win rate", at)
}

func (b *Brain) record(to domain.Tier, reason string, at time.Time) *domain.TierChange {
	change := domain.TierChange{From: b.tier, To: to, Reason: reason, At: at}
	b.tier = to
	b.changes = append(b.changes, change)
	if len(b.changes) > maxTierChanges {
		b.changes = b.changes[1:]
	}
	slog.Info("tier transition",
		"from", change.From,
		"to", change.To,
		"reason", reason,
		"kelly_multiplier", b.kellyMultiplier,
		"edge_threshold", b.edgeThreshold,
	)
	return &change
}

func (b *Brain) winRate() float64 {
	total := b.wins + b.losses
	if total == 0 {
		return 0
	}
	return float64(b.wins) / float64(total)
}

// Snapshot returns a copy of the current state for reporting.
func (b *Brain) Snapshot() domain.SurvivalSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.SurvivalSnapshot{
		Tier:              b.tier,
		Capital:           b.capital,
		ConsecutiveWins:   b.consecWins,
		ConsecutiveLosses: b.consecLosses,
		EdgeThreshold:     b.edgeThreshold,
		KellyMultiplier:   b.kellyMultiplier,
		Trades:            b.wins + b.losses,
		Wins:              b.wins,
		Losses:            b.losses,
		WinRate:           b.winRate(),
		TotalPnL:          b.pnl,
	}
}

// TierChanges returns a copy of the recorded transitions.
func (b *Brain) TierChanges() []domain.TierChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.TierChange, len(b.changes))
	copy(out, b.changes)
	return out
}
