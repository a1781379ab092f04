package ports

import (
	"context"

	"github.com/dnieto/quickedge/internal/domain"
)

// OrderExecutor places real orders on the market venue.
type OrderExecutor interface {
	// PlaceOrder submits an order and returns the fill confirmation.
	// Venue rejections and timeouts come back as errors; no position
	// should be created from a failed call.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error)
}

// SettlementOracle answers how a trade's market resolved. Production
// settlement and simulated settlement share this interface so the paper
// path can swap one for the other.
type SettlementOracle interface {
	// Settle returns the settlement for the trade's market, with
	// Resolved=false when the venue has not resolved it yet.
	Settle(ctx context.Context, trade domain.Trade) (domain.Settlement, error)
}
