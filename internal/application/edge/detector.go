// Package edge compares the live spot price against market implied
// pricing and emits a signal when the divergence is worth trading.
package edge

import (
	"log/slog"
	"math"

	"github.com/dnieto/quickedge/internal/domain"
)

// ThresholdSource supplies the minimum edge a signal must clear. The
// survival brain implements this, so a wounded run demands more edge
// without the detector knowing why.
type ThresholdSource interface {
	EdgeThreshold() float64
}

// Detector turns (tick, market) pairs into edge signals.
type Detector struct {
	impliedScale float64
	thresholds   ThresholdSource
}

// NewDetector builds a detector. impliedScale maps a YES price
// deviation from 0.5 into an implied percentage move.
func NewDetector(impliedScale float64, thresholds ThresholdSource) *Detector {
	return &Detector{impliedScale: impliedScale, thresholds: thresholds}
}

// Evaluate returns a signal when the market misprices the observed
// move by at least the current threshold, nil otherwise. Stale ticks,
// expired markets and markets without a baseline never produce
// signals.
func (d *Detector) Evaluate(tick domain.PriceTick, m domain.Market) *domain.EdgeSignal {
	if tick.Stale {
		return nil
	}
	if m.BaselinePrice <= 0 {
		slog.Debug("market without baseline skipped", "market_id", m.ID)
		return nil
	}
	if m.Expired(tick.ReceiptTime) {
		return nil
	}
	if m.YesPrice <= 0 || m.YesPrice >= 1 {
		return nil
	}

	realMove := (tick.Price - m.BaselinePrice) / m.BaselinePrice * 100
	impliedMove := (m.YesPrice - 0.5) * d.impliedScale
	edge := realMove - impliedMove

	if math.Abs(edge) < d.thresholds.EdgeThreshold() {
		return nil
	}

	dir := domain.DirectionYes
	if edge < 0 {
		dir = domain.DirectionNo
	}

	return &domain.EdgeSignal{
		MarketID:       m.ID,
		Question:       m.Question,
		Direction:      dir,
		EdgePct:        edge,
		RealMovePct:    realMove,
		ImpliedMovePct: impliedMove,
		Confidence:     confidence(edge),
		Price:          tick.Price,
		ObservedAt:     tick.ReceiptTime,
	}
}

// EvaluateAll scans every market against one tick and returns the
// resulting signals ranked best first.
func (d *Detector) EvaluateAll(tick domain.PriceTick, markets []domain.Market) []domain.EdgeSignal {
	var signals []domain.EdgeSignal
	for _, m := range markets {
		if sig := d.Evaluate(tick, m); sig != nil {
			signals = append(signals, *sig)
		}
	}
	domain.RankSignals(signals)
	return signals
}

// confidence grows linearly with edge size and saturates at 1. A 10%
// edge is treated as full conviction.
func confidence(edge float64) float64 {
	c := math.Abs(edge) / 10
	if c > 1 {
		return 1
	}
	return c
}
