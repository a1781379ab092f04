package paper

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"

	"github.com/dnieto/quickedge/internal/domain"
	"github.com/dnieto/quickedge/internal/ports"
)

// Oracle settles expired paper trades with a deterministic model: the
// market resolves YES with probability equal to its YES price at
// entry, and the draw is a hash of the market id rather than a random
// number. The same inputs always settle the same way, which keeps
// paper runs and their tests reproducible.
type Oracle struct{}

func NewOracle() *Oracle {
	return &Oracle{}
}

func (o *Oracle) Settle(_ context.Context, t domain.Trade) (domain.Settlement, error) {
	yesAtEntry := t.EntryPrice
	if t.Direction == domain.DirectionNo {
		yesAtEntry = 1 - t.EntryPrice
	}

	if draw(t.MarketID) < yesAtEntry {
		return domain.Settlement{Resolved: true, YesOutcome: true, Price: 1.0}, nil
	}
	return domain.Settlement{Resolved: true, YesOutcome: false, Price: 0.0}, nil
}

// draw maps a market id onto [0,1).
func draw(marketID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(marketID))
	return float64(h.Sum32()) / float64(math.MaxUint32+1)
}

// FallbackOracle prefers real venue settlement and falls back to the
// simulated model when the venue cannot answer, so a paper run tracks
// real outcomes whenever the venue is reachable.
type FallbackOracle struct {
	venue ports.SettlementOracle
	sim   *Oracle
}

func NewFallbackOracle(venue ports.SettlementOracle) *FallbackOracle {
	return &FallbackOracle{venue: venue, sim: NewOracle()}
}

func (f *FallbackOracle) Settle(ctx context.Context, t domain.Trade) (domain.Settlement, error) {
	s, err := f.venue.Settle(ctx, t)
	if err != nil {
		slog.Debug("venue settlement unavailable, simulating", "market_id", t.MarketID, "error", err)
		return f.sim.Settle(ctx, t)
	}
	if s.Resolved {
		return s, nil
	}
	// Unresolved at the venue. Settlement is only requested after
	// expiry, so simulate rather than wait on a market the venue may
	// never resolve.
	return f.sim.Settle(ctx, t)
}
