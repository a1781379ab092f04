package polymarket

import (
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// marketResp is one active market as the venue's query API returns it.
type marketResp struct {
	ID            string  `json:"id"`
	Question      string  `json:"question"`
	BaselinePrice float64 `json:"baseline_price"`
	YesPrice      float64 `json:"yes_price"`
	NoPrice       float64 `json:"no_price"`
	CreatedAt     string  `json:"created_at"`
	EndDate       string  `json:"end_date"`
}

// orderReq is the order submission payload.
type orderReq struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"` // YES | NO
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`
}

// orderResp is the venue's fill confirmation.
type orderResp struct {
	OrderID     string  `json:"order_id"`
	Status      string  `json:"status"` // matched | rejected
	FilledPrice float64 `json:"filled_price"`
	FilledSize  float64 `json:"filled_size"`
	Reason      string  `json:"reason,omitempty"`
}

// resolutionResp is the settlement query response.
type resolutionResp struct {
	Resolved bool   `json:"resolved"`
	Outcome  string `json:"outcome"` // YES | NO, empty until resolved
}

// toDomain maps a wire market to the descriptor the core reads.
func (m marketResp) toDomain() domain.Market {
	createdAt, _ := time.Parse(time.RFC3339, m.CreatedAt)
	endDate, _ := time.Parse(time.RFC3339, m.EndDate)
	return domain.Market{
		ID:            m.ID,
		Question:      m.Question,
		BaselinePrice: m.BaselinePrice,
		YesPrice:      m.YesPrice,
		NoPrice:       m.NoPrice,
		CreatedAt:     createdAt,
		ExpiresAt:     endDate,
	}
}
