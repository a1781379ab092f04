package polymarket

import (
	"context"
	"fmt"

	"github.com/dnieto/quickedge/internal/domain"
)

// Settle queries the venue for the trade's market resolution. Returns
// Resolved=false (not an error) while the market is still open.
func (c *Client) Settle(ctx context.Context, trade domain.Trade) (domain.Settlement, error) {
	var resp resolutionResp
	path := "/markets/" + trade.MarketID + "/resolution"
	if err := c.get(ctx, c.marketsLimiter, path, &resp); err != nil {
		return domain.Settlement{}, fmt.Errorf("polymarket.Settle: %w", err)
	}

	if !resp.Resolved {
		return domain.Settlement{}, nil
	}

	yes := resp.Outcome == "YES"
	price := 0.0
	if yes {
		price = 1.0
	}
	return domain.Settlement{Resolved: true, YesOutcome: yes, Price: price}, nil
}
