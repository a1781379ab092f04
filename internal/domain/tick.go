package domain

import "time"

// PriceTick is one spot trade from the streaming feed. SourceTime is
// the exchange timestamp, ReceiptTime when the tick reached us.
type PriceTick struct {
	Price       float64
	SourceTime  time.Time
	ReceiptTime time.Time
	Stale       bool
}

// Latency is the source-to-receipt delay. Clock skew can make it
// negative; callers compare against a ceiling and never assume it is.
func (t PriceTick) Latency() time.Duration {
	return t.ReceiptTime.Sub(t.SourceTime)
}
