package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
	"github.com/dnieto/quickedge/internal/ports"
)

// Resolver settles trades whose markets have expired and feeds the
// outcomes back into the risk state. Both engines share it; only the
// settlement oracle differs.
type Resolver struct {
	log      ports.TradeLog
	oracle   ports.SettlementOracle
	risk     RiskManager
	notifier ports.Notifier
	book     *Book
}

func NewResolver(log ports.TradeLog, oracle ports.SettlementOracle, risk RiskManager, notifier ports.Notifier, book *Book) *Resolver {
	return &Resolver{log: log, oracle: oracle, risk: risk, notifier: notifier, book: book}
}

// ResolveDue settles every pending trade past its expiry. Oracle
// failures skip the trade and retry on the next pass; the storage
// guard makes a repeated resolution a no-op.
func (r *Resolver) ResolveDue(ctx context.Context, now time.Time) (int, error) {
	pending, err := r.log.PendingTrades(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine.ResolveDue: %w", err)
	}

	resolved := 0
	for _, t := range pending {
		if !t.ResolutionDue(now) {
			continue
		}
		settlement, err := r.oracle.Settle(ctx, t)
		if err != nil {
			slog.Warn("settlement check failed", "trade_id", t.ID, "error", err)
			continue
		}
		if !settlement.Resolved {
			continue
		}

		pnl := t.SettlePnL(settlement.Price)
		won := pnl > 0
		if err := r.log.MarkResolved(ctx, t.ID, settlement.Price, pnl, won, now); err != nil {
			slog.Error("resolution persist failed", "trade_id", t.ID, "error", err)
			continue
		}
		r.book.Remove(t.MarketID)
		r.risk.ReportOutcome(domain.Outcome{
			TradeID:    t.ID,
			Won:        won,
			PnL:        pnl,
			RecordedAt: now,
		})
		resolved++

		resolvedAt := now
		t.Status = domain.StatusResolved
		t.ResolvedAt = &resolvedAt
		t.ResolutionPrice = settlement.Price
		t.PnL = pnl
		t.Won = won
		if err := r.notifier.TradeResolved(ctx, t, r.risk.Snapshot()); err != nil {
			slog.Warn("resolution notify failed", "trade_id", t.ID, "error", err)
		}
	}
	return resolved, nil
}
