package polymarket

import (
	"context"
	"fmt"

	"github.com/dnieto/quickedge/internal/domain"
)

// PlaceOrder submits an order and returns the fill confirmation. A venue
// rejection comes back as an error; the caller must not create a position
// from it.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	body := orderReq{
		MarketID: req.MarketID,
		Side:     string(req.Direction),
		Price:    req.Price,
		Size:     req.Size,
	}

	var resp orderResp
	if err := c.post(ctx, c.ordersLimiter, "/order", body, &resp); err != nil {
		return domain.OrderAck{}, fmt.Errorf("polymarket.PlaceOrder: %w", err)
	}
	if resp.Status != "matched" {
		return domain.OrderAck{}, fmt.Errorf("polymarket.PlaceOrder: order rejected: %s", resp.Reason)
	}

	return domain.OrderAck{
		OrderID:     resp.OrderID,
		FilledPrice: resp.FilledPrice,
		FilledSize:  resp.FilledSize,
	}, nil
}
