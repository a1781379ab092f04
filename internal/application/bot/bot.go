// Package bot wires the feed, detector, risk state and an execution
// engine into the run loop. One Bot owns one run: it restores state,
// consumes ticks until the context ends, and flushes a summary on the
// way out.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dnieto/quickedge/internal/application/edge"
	"github.com/dnieto/quickedge/internal/application/engine"
	"github.com/dnieto/quickedge/internal/domain"
	"github.com/dnieto/quickedge/internal/ports"
)

// Submitter is the engine-facing side of the loop. Both the live and
// paper engines satisfy it.
type Submitter interface {
	Submit(ctx context.Context, sig domain.EdgeSignal, m domain.Market) (*domain.Trade, error)
}

// RiskState extends the engine view with what the loop itself needs
// for restore and reporting.
type RiskState interface {
	engine.RiskManager
	RestoreHistory(outcomes []domain.Outcome)
	TierChanges() []domain.TierChange
	OnTierChange(func(domain.TierChange))
}

type Config struct {
	Mode            string
	CatalogRefresh  time.Duration
	ResolveInterval time.Duration
	AlertInterval   time.Duration
	RestoreOutcomes int
}

type Bot struct {
	cfg      Config
	feed     ports.PriceFeed
	catalog  ports.MarketProvider
	detector *edge.Detector
	risk     RiskState
	engine   Submitter
	resolver *engine.Resolver
	log      ports.TradeLog
	notifier ports.Notifier
	book     *engine.Book

	runID     string
	startedAt time.Time

	mu      sync.Mutex
	markets []domain.Market
	stale   int
}

func New(
	cfg Config,
	feed ports.PriceFeed,
	catalog ports.MarketProvider,
	detector *edge.Detector,
	risk RiskState,
	eng Submitter,
	resolver *engine.Resolver,
	log ports.TradeLog,
	notifier ports.Notifier,
	book *engine.Book,
) *Bot {
	return &Bot{
		cfg:      cfg,
		feed:     feed,
		catalog:  catalog,
		detector: detector,
		risk:     risk,
		engine:   eng,
		resolver: resolver,
		log:      log,
		notifier: notifier,
		book:     book,
		runID:    uuid.NewString(),
	}
}

// Run blocks until ctx ends. It always attempts a summary flush before
// returning, so an interrupted run still leaves a final record.
func (b *Bot) Run(ctx context.Context) error {
	b.startedAt = time.Now()
	slog.Info("run starting", "run_id", b.runID, "mode", b.cfg.Mode)

	if err := b.restore(ctx); err != nil {
		return fmt.Errorf("bot.Run: %w", err)
	}

	b.risk.OnTierChange(func(change domain.TierChange) {
		if err := b.notifier.TierChanged(context.Background(), change); err != nil {
			slog.Warn("tier change notify failed", "error", err)
		}
	})

	if err := b.feed.Start(ctx); err != nil {
		return fmt.Errorf("bot.Run: start feed: %w", err)
	}
	defer b.feed.Stop()

	b.refreshMarkets(ctx)

	catalogTick := time.NewTicker(b.cfg.CatalogRefresh)
	defer catalogTick.Stop()
	resolveTick := time.NewTicker(b.cfg.ResolveInterval)
	defer resolveTick.Stop()
	summaryTick := time.NewTicker(b.summaryInterval())
	defer summaryTick.Stop()

	for {
		select {
		case <-ctx.Done():
			b.flush()
			return ctx.Err()

		case tick, open := <-b.feed.Ticks():
			if !open {
				b.flush()
				return errors.New("bot.Run: price feed closed")
			}
			b.handleTick(ctx, tick)

		case <-catalogTick.C:
			b.refreshMarkets(ctx)

		case <-resolveTick.C:
			if _, err := b.resolver.ResolveDue(ctx, time.Now()); err != nil {
				slog.Error("resolve pass failed", "error", err)
			}

		case <-summaryTick.C:
			b.persistSummary(ctx)
		}
	}
}

// restore reloads pending positions and replays recent outcomes so the
// risk state resumes where the previous run stopped.
func (b *Bot) restore(ctx context.Context) error {
	pending, err := b.log.PendingTrades(ctx)
	if err != nil {
		return err
	}
	b.book.Load(pending)
	if len(pending) > 0 {
		slog.Info("pending positions recovered", "count", len(pending))
	}

	outcomes, err := b.log.RecentOutcomes(ctx, b.cfg.RestoreOutcomes)
	if err != nil {
		return err
	}
	if len(outcomes) > 0 {
		b.risk.RestoreHistory(outcomes)
	}
	return nil
}

func (b *Bot) handleTick(ctx context.Context, tick domain.PriceTick) {
	if tick.Stale {
		b.mu.Lock()
		b.stale++
		n := b.stale
		b.mu.Unlock()
		if n%100 == 1 {
			slog.Warn("stale ticks on feed", "count", n, "latency", tick.Latency())
		}
		return
	}

	b.mu.Lock()
	markets := b.markets
	b.mu.Unlock()
	if len(markets) == 0 {
		return
	}

	signals := b.detector.EvaluateAll(tick, markets)
	for _, sig := range signals {
		m, ok := marketByID(markets, sig.MarketID)
		if !ok {
			continue
		}
		if _, err := b.engine.Submit(ctx, sig, m); err != nil {
			b.logRejection(sig, err)
		}
	}
}

// logRejection keeps routine rejections quiet. Only venue failures and
// unexpected errors surface above debug.
func (b *Bot) logRejection(sig domain.EdgeSignal, err error) {
	switch {
	case errors.Is(err, engine.ErrLatencyBreach):
		slog.Warn("order blocked by latency breaker", "market_id", sig.MarketID, "error", err)
	case errors.Is(err, engine.ErrDuplicateMarket), errors.Is(err, engine.ErrRejected):
		slog.Debug("signal not taken", "market_id", sig.MarketID, "error", err)
	case errors.Is(err, engine.ErrVenueRejected):
		slog.Warn("venue rejected order", "market_id", sig.MarketID, "error", err)
	default:
		slog.Error("order submission failed", "market_id", sig.MarketID, "error", err)
	}
}

func (b *Bot) refreshMarkets(ctx context.Context) {
	markets, err := b.catalog.ActiveMarkets(ctx)
	if err != nil {
		slog.Warn("market refresh failed, keeping previous set", "error", err)
		return
	}
	b.mu.Lock()
	b.markets = markets
	b.mu.Unlock()
	slog.Debug("market catalog refreshed", "markets", len(markets))
}

func (b *Bot) summaryInterval() time.Duration {
	if b.cfg.AlertInterval > 0 {
		return b.cfg.AlertInterval
	}
	return time.Minute
}

// Summary builds the current run aggregate from the risk snapshot.
func (b *Bot) Summary() domain.RunSummary {
	snap := b.risk.Snapshot()
	return domain.RunSummary{
		RunID:       b.runID,
		Mode:        b.cfg.Mode,
		StartedAt:   b.startedAt,
		UpdatedAt:   time.Now(),
		Trades:      snap.Trades,
		Wins:        snap.Wins,
		Losses:      snap.Losses,
		WinRate:     snap.WinRate,
		TotalPnL:    snap.TotalPnL,
		Capital:     snap.Capital,
		TierChanges: b.risk.TierChanges(),
	}
}

func (b *Bot) persistSummary(ctx context.Context) {
	if err := b.log.SaveSummary(ctx, b.Summary()); err != nil {
		slog.Error("summary persist failed", "error", err)
	}
}

// flush runs with a short detached context because the run context is
// already cancelled when shutdown reaches it.
func (b *Bot) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b.persistSummary(ctx)
	if err := b.notifier.Summary(ctx, b.Summary()); err != nil {
		slog.Warn("final summary notify failed", "error", err)
	}
	slog.Info("run stopped", "run_id", b.runID)
}

func marketByID(markets []domain.Market, id string) (domain.Market, bool) {
	for _, m := range markets {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Market{}, false
}
