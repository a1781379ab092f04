package domain

import (
	"sort"
	"time"
)

// Direction is the side of a binary market a signal favors.
type Direction string

const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
)

// EdgeSignal is the gap between observed and market-implied price movement
// for one (tick, market) pair. Derived, stateless, recomputed each cycle.
type EdgeSignal struct {
	MarketID       string
	Question       string
	Direction      Direction
	EdgePct        float64 // signed: positive favors YES
	RealMovePct    float64
	ImpliedMovePct float64
	Confidence     float64 // 0..1, logging and bucketing only
	Price          float64 // symbol price at observation
	ObservedAt     time.Time
}

// Magnitude returns |EdgePct|, the value compared against the edge threshold.
func (e EdgeSignal) Magnitude() float64 {
	if e.EdgePct < 0 {
		return -e.EdgePct
	}
	return e.EdgePct
}

// Score ranks competing signals: bigger edge backed by more confidence wins.
func (e EdgeSignal) Score() float64 {
	return e.Magnitude() * e.Confidence
}

// RankSignals orders signals best-first by Score.
func RankSignals(signals []EdgeSignal) []EdgeSignal {
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].Score() > signals[j].Score()
	})
	return signals
}
