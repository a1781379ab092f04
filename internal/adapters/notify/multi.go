package notify

import (
	"context"

	"github.com/dnieto/quickedge/internal/domain"
	"github.com/dnieto/quickedge/internal/ports"
)

// Multi fans events out to several sinks; the first error wins but every
// sink still gets the event.
type Multi []ports.Notifier

// NewMulti bundles sinks into one notifier.
func NewMulti(sinks ...ports.Notifier) Multi {
	return Multi(sinks)
}

func (m Multi) TradeOpened(ctx context.Context, t domain.Trade) error {
	var first error
	for _, n := range m {
		if err := n.TradeOpened(ctx, t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) TradeResolved(ctx context.Context, t domain.Trade, snap domain.SurvivalSnapshot) error {
	var first error
	for _, n := range m {
		if err := n.TradeResolved(ctx, t, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) TierChanged(ctx context.Context, change domain.TierChange) error {
	var first error
	for _, n := range m {
		if err := n.TierChanged(ctx, change); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Summary(ctx context.Context, s domain.RunSummary) error {
	var first error
	for _, n := range m {
		if err := n.Summary(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
