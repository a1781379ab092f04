package domain

// OrderRequest is sent to the venue's order endpoint.
type OrderRequest struct {
	MarketID  string
	Direction Direction
	Price     float64 // limit price for the chosen token
	Size      float64 // USDC
}

// OrderAck is the venue's response to an accepted order.
type OrderAck struct {
	OrderID     string
	FilledPrice float64
	FilledSize  float64
}
