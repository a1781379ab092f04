package ports

import (
	"context"

	"github.com/dnieto/quickedge/internal/domain"
)

// PriceFeed delivers a live stream of price ticks for a single symbol.
type PriceFeed interface {
	// Start opens the streaming connection and begins delivering ticks.
	// It returns once the feed is running; reconnects happen internally.
	Start(ctx context.Context) error

	// Ticks is the delivery channel. Bounded: when the consumer falls
	// behind, the oldest buffered tick is dropped, never the newest.
	Ticks() <-chan domain.PriceTick

	// Latest returns the most recent tick, or false if none arrived yet.
	Latest() (domain.PriceTick, bool)

	// Stop terminates the connection. Idempotent.
	Stop()
}
