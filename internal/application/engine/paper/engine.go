// Package paper runs the same decision pipeline as the live engine
// but fills orders instantly at the quoted price and settles them
// against a simulated oracle. Trades share the live schema, flagged
// paper, so the survival brain learns from them the same way.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dnieto/quickedge/internal/application/engine"
	"github.com/dnieto/quickedge/internal/domain"
	"github.com/dnieto/quickedge/internal/ports"
)

type Engine struct {
	feed       ports.PriceFeed
	log        ports.TradeLog
	risk       engine.RiskManager
	notifier   ports.Notifier
	book       *engine.Book
	maxLatency time.Duration

	now func() time.Time
}

func NewEngine(
	feed ports.PriceFeed,
	log ports.TradeLog,
	risk engine.RiskManager,
	notifier ports.Notifier,
	book *engine.Book,
	maxLatency time.Duration,
) *Engine {
	return &Engine{
		feed:       feed,
		log:        log,
		risk:       risk,
		notifier:   notifier,
		book:       book,
		maxLatency: maxLatency,
		now:        time.Now,
	}
}

// Submit fills an approved signal at the current quote. The latency
// breaker and duplicate checks still apply so a paper run measures the
// same pipeline a live run would.
func (e *Engine) Submit(ctx context.Context, sig domain.EdgeSignal, m domain.Market) (*domain.Trade, error) {
	tick, ok := e.feed.Latest()
	if !ok {
		return nil, fmt.Errorf("paper.Submit: no tick yet: %w", engine.ErrLatencyBreach)
	}
	if lat := tick.Latency(); lat > e.maxLatency || tick.Stale {
		return nil, fmt.Errorf("paper.Submit: latency %s over %s: %w", lat, e.maxLatency, engine.ErrLatencyBreach)
	}

	if e.book.Has(sig.MarketID) {
		return nil, fmt.Errorf("paper.Submit: market %s: %w", sig.MarketID, engine.ErrDuplicateMarket)
	}

	frac, ok, reason := e.risk.Approve(sig, e.book.Len())
	if !ok {
		return nil, fmt.Errorf("paper.Submit: %s: %w", reason, engine.ErrRejected)
	}

	entry := m.YesPrice
	if sig.Direction == domain.DirectionNo {
		entry = m.NoPrice
	}
	if entry <= 0 {
		return nil, fmt.Errorf("paper.Submit: quote %.4f not fillable", entry)
	}
	size := frac * e.risk.Snapshot().Capital

	trade := domain.Trade{
		ID:         uuid.NewString(),
		MarketID:   sig.MarketID,
		Question:   sig.Question,
		Direction:  sig.Direction,
		EntryPrice: entry,
		Size:       size,
		Shares:     size / entry,
		EdgePct:    sig.EdgePct,
		Confidence: sig.Confidence,
		Tier:       e.risk.Snapshot().Tier,
		Paper:      true,
		OpenedAt:   e.now(),
		ExpiresAt:  m.ExpiresAt,
		Status:     domain.StatusPending,
	}
	if err := e.log.SaveTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("paper.Submit: %w", err)
	}
	e.book.Add(trade.MarketID, trade.ID)

	if err := e.notifier.TradeOpened(ctx, trade); err != nil {
		slog.Warn("trade open notify failed", "trade_id", trade.ID, "error", err)
	}
	slog.Info("paper fill",
		"trade_id", trade.ID,
		"market_id", trade.MarketID,
		"direction", trade.Direction,
		"size", trade.Size,
		"entry", trade.EntryPrice,
	)
	return &trade, nil
}
