package domain

import "time"

// Market is an immutable snapshot of a short-duration prediction market,
// supplied by the catalog. The core only reads it.
type Market struct {
	ID            string
	Question      string
	BaselinePrice float64 // symbol price recorded at market creation
	YesPrice      float64
	NoPrice       float64
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the market window has closed.
func (m Market) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// TimeToExpiry returns the remaining window, negative once expired.
func (m Market) TimeToExpiry(now time.Time) time.Duration {
	return m.ExpiresAt.Sub(now)
}

// Settlement is the resolved outcome of a market as reported by the venue
// or by a simulated oracle.
type Settlement struct {
	Resolved   bool
	YesOutcome bool
	// Price is the terminal YES token price: 1.0 when YES, 0.0 when NO.
	Price float64
}
