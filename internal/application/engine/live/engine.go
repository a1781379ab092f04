// Package live executes signals against the real venue. Every order
// passes the latency circuit breaker first; a slow feed means the
// price the signal was built on can no longer be trusted.
package live

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
	venue      ports.OrderExecutor
	log        ports.TradeLog
	risk       engine.RiskManager
	notifier   ports.Notifier
	book       *engine.Book
	latencies  *engine.LatencyTracker
	maxLatency time.Duration

	now func() time.Time
}

func NewEngine(
	feed ports.PriceFeed,
	venue ports.OrderExecutor,
	log ports.TradeLog,
	risk engine.RiskManager,
	notifier ports.Notifier,
	book *engine.Book,
	maxLatency time.Duration,
) *Engine {
	return &Engine{
		feed:       feed,
		venue:      venue,
		log:        log,
		risk:       risk,
		notifier:   notifier,
		book:       book,
		latencies:  engine.NewLatencyTracker(),
		maxLatency: maxLatency,
		now:        time.Now,
	}
}

// Submit turns an approved signal into a venue order. The checks run
// in a fixed order: feed latency, duplicate market, risk approval,
// then the order itself. A breach anywhere before the order means the
// venue is never contacted.
func (e *Engine) Submit(ctx context.Context, sig domain.EdgeSignal, m domain.Market) (*domain.Trade, error) {
	tick, ok := e.feed.Latest()
	if !ok {
		return nil, fmt.Errorf("live.Submit: no tick yet: %w", engine.ErrLatencyBreach)
	}
	if lat := tick.Latency(); lat > e.maxLatency || tick.Stale {
		return nil, fmt.Errorf("live.Submit: latency %s over %s: %w", lat, e.maxLatency, engine.ErrLatencyBreach)
	}

	if e.book.Has(sig.MarketID) {
		return nil, fmt.Errorf("live.Submit: market %s: %w", sig.MarketID, engine.ErrDuplicateMarket)
	}

	frac, ok, reason := e.risk.Approve(sig, e.book.Len())
	if !ok {
		return nil, fmt.Errorf("live.Submit: %s: %w", reason, engine.ErrRejected)
	}

	entry := m.YesPrice
	if sig.Direction == domain.DirectionNo {
		entry = m.NoPrice
	}
	size := frac * e.risk.Snapshot().Capital

	start := e.now()
	ack, err := e.venue.PlaceOrder(ctx, domain.OrderRequest{
		MarketID:  sig.MarketID,
		Direction: sig.Direction,
		Price:     entry,
		Size:      size,
	})
	elapsed := e.now().Sub(start)
	e.latencies.Record(elapsed)
	if elapsed > e.maxLatency {
		slog.Warn("slow order round trip", "market_id", sig.MarketID, "elapsed", elapsed)
	}
	if err != nil {
		return nil, fmt.Errorf("live.Submit: %w: %w", engine.ErrVenueRejected, err)
	}

	trade := domain.Trade{
		ID:         uuid.NewString(),
		MarketID:   sig.MarketID,
		Question:   sig.Question,
		Direction:  sig.Direction,
		EntryPrice: ack.FilledPrice,
		Size:       ack.FilledSize,
		Shares:     ack.FilledSize / ack.FilledPrice,
		EdgePct:    sig.EdgePct,
		Confidence: sig.Confidence,
		Tier:       e.risk.Snapshot().Tier,
		Paper:      false,
		OpenedAt:   e.now(),
		ExpiresAt:  m.ExpiresAt,
		Status:     domain.StatusPending,
	}
	if err := e.log.SaveTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("live.Submit: persist after fill: %w", err)
	}
	e.book.Add(trade.MarketID, trade.ID)

	if err := e.notifier.TradeOpened(ctx, trade); err != nil {
		slog.Warn("trade open notify failed", "trade_id", trade.ID, "error", err)
	}
	slog.Info("order filled",
		"trade_id", trade.ID,
		"market_id", trade.MarketID,
		"direction", trade.Direction,
		"size", trade.Size,
		"entry", trade.EntryPrice,
	)
	return &trade, nil
}

// ExecutionStats reports over the recent order round trips.
func (e *Engine) ExecutionStats() (count int, mean, max time.Duration) {
	return e.latencies.Stats()
}
