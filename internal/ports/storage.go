package ports

import (
	"context"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// TradeLog persists trades, resolutions, and run summaries. Writes are
// atomic per record: a crash between open and resolve leaves the trade
// recoverable as PENDING.
type TradeLog interface {
	ApplySchema(ctx context.Context) error

	SaveTrade(ctx context.Context, t domain.Trade) error
	MarkResolved(ctx context.Context, tradeID string, price, pnl float64, won bool, at time.Time) error

	// PendingTrades returns trades still awaiting resolution, used to
	// resume after a restart.
	PendingTrades(ctx context.Context) ([]domain.Trade, error)

	// RecentOutcomes returns the newest resolved outcomes, oldest first,
	// used to restore the survival brain's history. Corrupt rows are
	// skipped with a warning, never fatal.
	RecentOutcomes(ctx context.Context, limit int) ([]domain.Outcome, error)

	SaveSummary(ctx context.Context, s domain.RunSummary) error

	Close() error
}
