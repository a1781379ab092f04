// Package engine holds the pieces shared by the live and paper
// execution engines: rejection errors, the open position book, the
// execution latency tracker and the settlement resolver.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// Rejection reasons. Callers match with errors.Is; the wrapped message
// carries the specifics.
var (
	ErrLatencyBreach   = errors.New("feed latency above limit")
	ErrDuplicateMarket = errors.New("market already has an open position")
	ErrRejected        = errors.New("signal rejected by risk state")
	ErrVenueRejected   = errors.New("order rejected by venue")
)

// RiskManager is the slice of the survival brain the engines need.
type RiskManager interface {
	Approve(sig domain.EdgeSignal, openPositions int) (frac float64, ok bool, reason string)
	ReportOutcome(o domain.Outcome)
	Snapshot() domain.SurvivalSnapshot
}

// Book tracks open positions by market so one market never carries two
// concurrent trades.
type Book struct {
	mu   sync.Mutex
	open map[string]string // market id -> trade id
}

func NewBook() *Book {
	return &Book{open: make(map[string]string)}
}

// Load seeds the book from trades recovered at startup.
func (b *Book) Load(trades []domain.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range trades {
		if t.Status == domain.StatusPending {
			b.open[t.MarketID] = t.ID
		}
	}
}

func (b *Book) Has(marketID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.open[marketID]
	return ok
}

func (b *Book) Add(marketID, tradeID string) {
	b.mu.Lock()
	b.open[marketID] = tradeID
	b.mu.Unlock()
}

func (b *Book) Remove(marketID string) {
	b.mu.Lock()
	delete(b.open, marketID)
	b.mu.Unlock()
}

func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

const latencyWindow = 100

// LatencyTracker keeps a sliding window of execution round trips.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
}

func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{}
}

func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, d)
	if len(l.samples) > latencyWindow {
		l.samples = l.samples[1:]
	}
}

// Stats returns the count, mean and max over the window.
func (l *LatencyTracker) Stats() (count int, mean, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count = len(l.samples)
	if count == 0 {
		return 0, 0, 0
	}
	var sum time.Duration
	for _, s := range l.samples {
		sum += s
		if s > max {
			max = s
		}
	}
	return count, sum / time.Duration(count), max
}
