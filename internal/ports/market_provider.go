package ports

import (
	"context"

	"github.com/dnieto/quickedge/internal/domain"
)

// MarketProvider supplies the active short-duration markets for the traded
// symbol. Implementations cache with a short TTL and fall back to the stale
// cache on fetch errors.
type MarketProvider interface {
	ActiveMarkets(ctx context.Context) ([]domain.Market, error)
}
