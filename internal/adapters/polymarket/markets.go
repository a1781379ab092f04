package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// marketCache keeps the last successful catalog fetch so a transient
// venue error never empties the decision loop's market view.
type marketCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	markets   []domain.Market
	fetchedAt time.Time
}

func (mc *marketCache) fresh(now time.Time) ([]domain.Market, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.fetchedAt.IsZero() || now.Sub(mc.fetchedAt) > mc.ttl {
		return nil, false
	}
	return mc.markets, true
}

func (mc *marketCache) store(markets []domain.Market, now time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.markets = markets
	mc.fetchedAt = now
}

func (mc *marketCache) stale() []domain.Market {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.markets
}

// ActiveMarkets returns the currently open short-duration markets,
// serving from cache within the TTL and falling back to the stale cache
// when the venue is unreachable.
func (c *Client) ActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	now := time.Now()
	if markets, ok := c.cache.fresh(now); ok {
		return markets, nil
	}

	var resp []marketResp
	path := "/markets?active=true&symbol=" + url.QueryEscape("btc")
	if err := c.get(ctx, c.marketsLimiter, path, &resp); err != nil {
		if stale := c.cache.stale(); stale != nil {
			slog.Warn("venue: market fetch failed, serving stale cache",
				"markets", len(stale), "err", err)
			return stale, nil
		}
		return nil, fmt.Errorf("polymarket.ActiveMarkets: %w", err)
	}

	markets := make([]domain.Market, 0, len(resp))
	for _, m := range resp {
		dm := m.toDomain()
		if dm.Expired(now) {
			continue
		}
		markets = append(markets, dm)
	}

	c.cache.store(markets, now)
	slog.Debug("venue: markets refreshed", "count", len(markets))
	return markets, nil
}
