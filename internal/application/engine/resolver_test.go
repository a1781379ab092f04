package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnieto/quickedge/internal/domain"
)

type fakeLog struct {
	pending  []domain.Trade
	resolved map[string]float64 // trade id -> pnl
	failMark bool
}

func newFakeLog(pending ...domain.Trade) *fakeLog {
	return &fakeLog{pending: pending, resolved: make(map[string]float64)}
}

func (f *fakeLog) ApplySchema(context.Context) error { return nil }
func (f *fakeLog) SaveTrade(context.Context, domain.Trade) error { return nil }
func (f *fakeLog) SaveSummary(context.Context, domain.RunSummary) error { return nil }
func (f *fakeLog) Close() error { return nil }

func (f *fakeLog) MarkResolved(_ context.Context, tradeID string, _, pnl float64, _ bool, _ time.Time) error {
	if f.failMark {
		return errors.New("disk full")
	}
	f.resolved[tradeID] = pnl
	remaining := f.pending[:0]
	for _, t := range f.pending {
		if t.ID != tradeID {
			remaining = append(remaining, t)
		}
	}
	f.pending = remaining
	return nil
}

func (f *fakeLog) PendingTrades(context.Context) ([]domain.Trade, error) {
	out := make([]domain.Trade, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeLog) RecentOutcomes(context.Context, int) ([]domain.Outcome, error) {
	return nil, nil
}

type fakeOracle struct {
	settlements map[string]domain.Settlement
	err         error
	calls       int
}

func (f *fakeOracle) Settle(_ context.Context, t domain.Trade) (domain.Settlement, error) {
	f.calls++
	if f.err != nil {
		return domain.Settlement{}, f.err
	}
	return f.settlements[t.MarketID], nil
}

type fakeRisk struct {
	outcomes []domain.Outcome
	frac     float64
	ok       bool
	reason   string
	snap     domain.SurvivalSnapshot
}

func (f *fakeRisk) Approve(domain.EdgeSignal, int) (float64, bool, string) {
	return f.frac, f.ok, f.reason
}

func (f *fakeRisk) ReportOutcome(o domain.Outcome) {
	f.outcomes = append(f.outcomes, o)
}

func (f *fakeRisk) Snapshot() domain.SurvivalSnapshot { return f.snap }

type fakeNotifier struct {
	opened   []domain.Trade
	resolved []domain.Trade
	changes  []domain.TierChange
}

func (f *fakeNotifier) TradeOpened(_ context.Context, t domain.Trade) error {
	f.opened = append(f.opened, t)
	return nil
}

func (f *fakeNotifier) TradeResolved(_ context.Context, t domain.Trade, _ domain.SurvivalSnapshot) error {
	f.resolved = append(f.resolved, t)
	return nil
}

func (f *fakeNotifier) TierChanged(_ context.Context, c domain.TierChange) error {
	f.changes = append(f.changes, c)
	return nil
}

func (f *fakeNotifier) Summary(context.Context, domain.RunSummary) error { return nil }

func pendingTrade(id, marketID string, dir domain.Direction, expiredFor time.Duration) domain.Trade {
	return domain.Trade{
		ID:         id,
		MarketID:   marketID,
		Direction:  dir,
		EntryPrice: 0.45,
		Size:       10,
		Shares:     10 / 0.45,
		Status:     domain.StatusPending,
		OpenedAt:   time.Now().Add(-expiredFor - time.Minute),
		ExpiresAt:  time.Now().Add(-expiredFor),
	}
}

func TestResolveDueSettlesExpiredTrades(t *testing.T) {
	trade := pendingTrade("t1", "m1", domain.DirectionYes, time.Minute)
	log := newFakeLog(trade)
	oracle := &fakeOracle{settlements: map[string]domain.Settlement{
		"m1": {Resolved: true, YesOutcome: true, Price: 1.0},
	}}
	risk := &fakeRisk{}
	notifier := &fakeNotifier{}
	book := NewBook()
	book.Add("m1", "t1")

	r := NewResolver(log, oracle, risk, notifier, book)
	n, err := r.ResolveDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// YES at 0.45 paying out 1.0 wins 0.55 per share.
	wantPnL := (1.0 - 0.45) * trade.Shares
	assert.InDelta(t, wantPnL, log.resolved["t1"], 1e-9)

	require.Len(t, risk.outcomes, 1)
	assert.True(t, risk.outcomes[0].Won)
	assert.InDelta(t, wantPnL, risk.outcomes[0].PnL, 1e-9)

	assert.False(t, book.Has("m1"), "position freed for the market")
	require.Len(t, notifier.resolved, 1)
	assert.Equal(t, domain.StatusResolved, notifier.resolved[0].Status)
}

func TestResolveDueSkipsUnexpired(t *testing.T) {
	trade := pendingTrade("t1", "m1", domain.DirectionYes, 0)
	trade.ExpiresAt = time.Now().Add(time.Hour)
	log := newFakeLog(trade)
	oracle := &fakeOracle{}

	r := NewResolver(log, oracle, &fakeRisk{}, &fakeNotifier{}, NewBook())
	n, err := r.ResolveDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, oracle.calls, "oracle untouched before expiry")
}

func TestResolveDueRetriesUnresolvedMarkets(t *testing.T) {
	trade := pendingTrade("t1", "m1", domain.DirectionYes, time.Minute)
	log := newFakeLog(trade)
	oracle := &fakeOracle{settlements: map[string]domain.Settlement{
		"m1": {Resolved: false},
	}}
	risk := &fakeRisk{}

	r := NewResolver(log, oracle, risk, &fakeNotifier{}, NewBook())

	for i := 0; i < 3; i++ {
		n, err := r.ResolveDue(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
	assert.Equal(t, 3, oracle.calls, "trade stays pending until the oracle reports")
	assert.Empty(t, risk.outcomes)

	oracle.settlements["m1"] = domain.Settlement{Resolved: true, Price: 0.0}
	n, err := r.ResolveDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, risk.outcomes, 1)
	assert.False(t, risk.outcomes[0].Won)
}

func TestResolveDueOracleErrorLeavesTradePending(t *testing.T) {
	trade := pendingTrade("t1", "m1", domain.DirectionNo, time.Minute)
	log := newFakeLog(trade)
	oracle := &fakeOracle{err: errors.New("venue down")}
	risk := &fakeRisk{}

	r := NewResolver(log, oracle, risk, &fakeNotifier{}, NewBook())
	n, err := r.ResolveDue(context.Background(), time.Now())
	require.NoError(t, err, "oracle failure is retried, not fatal")
	assert.Equal(t, 0, n)
	assert.Empty(t, risk.outcomes)
	assert.Len(t, log.pending, 1)
}

func TestResolveDuePersistFailureSkipsFeedback(t *testing.T) {
	trade := pendingTrade("t1", "m1", domain.DirectionYes, time.Minute)
	log := newFakeLog(trade)
	log.failMark = true
	oracle := &fakeOracle{settlements: map[string]domain.Settlement{
		"m1": {Resolved: true, Price: 1.0},
	}}
	risk := &fakeRisk{}

	r := NewResolver(log, oracle, risk, &fakeNotifier{}, NewBook())
	n, err := r.ResolveDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, risk.outcomes, "no feedback without a durable resolution")
}

func TestResolveDueNoDirectionPayout(t *testing.T) {
	trade := pendingTrade("t1", "m1", domain.DirectionNo, time.Minute)
	log := newFakeLog(trade)
	oracle := &fakeOracle{settlements: map[string]domain.Settlement{
		"m1": {Resolved: true, YesOutcome: false, Price: 0.0},
	}}
	risk := &fakeRisk{}

	r := NewResolver(log, oracle, risk, &fakeNotifier{}, NewBook())
	_, err := r.ResolveDue(context.Background(), time.Now())
	require.NoError(t, err)

	// NO at 0.45 with a NO outcome pays (1 - 0) - 0.45 per share.
	wantPnL := (1.0 - 0.45) * trade.Shares
	assert.InDelta(t, wantPnL, log.resolved["t1"], 1e-9)
}
