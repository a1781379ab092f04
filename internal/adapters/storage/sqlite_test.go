package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnieto/quickedge/internal/domain"
)

func newTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	s, err := NewSQLiteLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(id string) domain.Trade {
	return domain.Trade{
		ID:         id,
		MarketID:   "mkt-" + id,
		Question:   "Will BTC be above $95,000 at 14:30 UTC?",
		Direction:  domain.DirectionYes,
		EntryPrice: 0.45,
		Size:       10,
		Shares:     10 / 0.45,
		EdgePct:    5.5,
		Confidence: 0.55,
		Tier:       domain.TierHealthy,
		Paper:      true,
		OpenedAt:   time.Now().UTC().Truncate(time.Second),
		ExpiresAt:  time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second),
		Status:     domain.StatusPending,
	}
}

func TestSaveAndLoadPendingTrade(t *testing.T) {
	s := newTestLog(t)
	ctx := context.Background()

	trade := sampleTrade("t1")
	require.NoError(t, s.SaveTrade(ctx, trade))

	pending, err := s.PendingTrades(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	got := pending[0]
	assert.Equal(t, trade.ID, got.ID)
	assert.Equal(t, trade.MarketID, got.MarketID)
	assert.Equal(t, trade.Direction, got.Direction)
	assert.Equal(t, trade.EntryPrice, got.EntryPrice)
	assert.InDelta(t, trade.Shares, got.Shares, 1e-9)
	assert.Equal(t, trade.Tier, got.Tier)
	assert.True(t, got.Paper)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, trade.OpenedAt.Equal(got.OpenedAt))
	assert.True(t, trade.ExpiresAt.Equal(got.ExpiresAt))
}

func TestSaveTradeRejectsDuplicateID(t *testing.T) {
	s := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t1")))
	assert.Error(t, s.SaveTrade(ctx, sampleTrade("t1")))
}

func TestMarkResolvedIsIdempotent(t *testing.T) {
	s := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t1")))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.MarkResolved(ctx, "t1", 1.0, 12.22, true, now))

	// Second attempt must not overwrite the recorded outcome.
	require.NoError(t, s.MarkResolved(ctx, "t1", 0.0, -99, false, now.Add(time.Hour)))

	outcomes, err := s.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "t1", outcomes[0].TradeID)
	assert.True(t, outcomes[0].Won)
	assert.InDelta(t, 12.22, outcomes[0].PnL, 1e-9)

	pending, err := s.PendingTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMarkResolvedUnknownTradeIsQuiet(t *testing.T) {
	s := newTestLog(t)
	assert.NoError(t, s.MarkResolved(context.Background(), "nope", 1.0, 1, true, time.Now()))
}

func TestPendingTradesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/trades.db"
	ctx := context.Background()

	s, err := NewSQLiteLog(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t1")))
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t2")))
	require.NoError(t, s.MarkResolved(ctx, "t2", 1.0, 5, true, time.Now()))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteLog(path)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.PendingTrades(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "t1", pending[0].ID)
}

func TestPendingTradesQuarantinesBadRows(t *testing.T) {
	s := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrade(ctx, sampleTrade("good")))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, market_id, direction, entry_price, size, shares,
		                    opened_at, expires_at, status)
		VALUES ('bad', 'm', 'YES', 0.5, 1, 2, 'not-a-date', 'not-a-date', 'PENDING')`)
	require.NoError(t, err)

	pending, err := s.PendingTrades(ctx)
	require.NoError(t, err, "a corrupt row must not fail the whole load")
	require.Len(t, pending, 1)
	assert.Equal(t, "good", pending[0].ID)
}

func TestRecentOutcomesOldestFirstAndLimited(t *testing.T) {
	s := newTestLog(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("t%d", i)
		require.NoError(t, s.SaveTrade(ctx, sampleTrade(id)))
		require.NoError(t, s.MarkResolved(ctx, id, 1.0, float64(i), i%2 == 0, base.Add(time.Duration(i)*time.Minute)))
	}

	outcomes, err := s.RecentOutcomes(ctx, 3)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	// The three newest, returned oldest first.
	assert.Equal(t, "t2", outcomes[0].TradeID)
	assert.Equal(t, "t3", outcomes[1].TradeID)
	assert.Equal(t, "t4", outcomes[2].TradeID)
	assert.True(t, outcomes[0].RecordedAt.Before(outcomes[2].RecordedAt))
}

func TestSummaryRoundTripAndUpsert(t *testing.T) {
	s := newTestLog(t)
	ctx := context.Background()

	sum := domain.RunSummary{
		RunID:     "run-1",
		Mode:      "paper",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Trades:    3,
		Wins:      2,
		Losses:    1,
		WinRate:   2.0 / 3.0,
		TotalPnL:  4.5,
		Capital:   104.5,
		TierChanges: []domain.TierChange{
			{From: domain.TierHealthy, To: domain.TierWounded, Reason: "loss streak", At: time.Now().UTC().Truncate(time.Second)},
		},
	}
	require.NoError(t, s.SaveSummary(ctx, sum))

	got, ok, err := s.GetSummary(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sum.Mode, got.Mode)
	assert.Equal(t, sum.Trades, got.Trades)
	assert.InDelta(t, sum.WinRate, got.WinRate, 1e-9)
	require.Len(t, got.TierChanges, 1)
	assert.Equal(t, domain.TierWounded, got.TierChanges[0].To)

	sum.Trades = 4
	sum.Capital = 110
	require.NoError(t, s.SaveSummary(ctx, sum))

	got, ok, err = s.GetSummary(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, got.Trades)
	assert.Equal(t, 110.0, got.Capital)
}

func TestGetSummaryMissing(t *testing.T) {
	s := newTestLog(t)
	_, ok, err := s.GetSummary(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
