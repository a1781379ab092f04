package ports

import (
	"context"

	"github.com/dnieto/quickedge/internal/domain"
)

// Notifier delivers human-readable events to an external sink. Sinks
// rate-limit per event category; a dropped notification is not an error.
type Notifier interface {
	TradeOpened(ctx context.Context, t domain.Trade) error
	TradeResolved(ctx context.Context, t domain.Trade, snap domain.SurvivalSnapshot) error
	TierChanged(ctx context.Context, change domain.TierChange) error
	Summary(ctx context.Context, s domain.RunSummary) error
}
