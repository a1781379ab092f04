package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// SaveTrade inserts a newly opened trade. One INSERT, atomic per record.
func (s *SQLiteLog) SaveTrade(ctx context.Context, t domain.Trade) error {
	paper := 0
	if t.Paper {
		paper = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, market_id, question, direction, entry_price, size,
		                    shares, edge_pct, confidence, tier, paper,
		                    opened_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.MarketID, t.Question, string(t.Direction), t.EntryPrice, t.Size,
		t.Shares, t.EdgePct, t.Confidence, string(t.Tier), paper,
		t.OpenedAt.UTC().Format(time.RFC3339), t.ExpiresAt.UTC().Format(time.RFC3339),
		string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: %w", err)
	}
	return nil
}

// MarkResolved transitions a trade PENDING→RESOLVED. The status guard in
// the WHERE clause makes a second call for the same id a no-op.
func (s *SQLiteLog) MarkResolved(ctx context.Context, tradeID string, price, pnl float64, won bool, at time.Time) error {
	wonInt := 0
	if won {
		wonInt = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET status = ?, resolved_at = ?, resolution_price = ?, pnl = ?, won = ?
		WHERE id = ? AND status = ?`,
		string(domain.StatusResolved), at.UTC().Format(time.RFC3339),
		price, pnl, wonInt, tradeID, string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("storage.MarkResolved: %s: %w", tradeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Debug("storage: trade already resolved", "trade_id", tradeID)
	}
	return nil
}

// PendingTrades returns all trades awaiting resolution, oldest first.
// Rows that fail to scan are quarantined with a warning.
func (s *SQLiteLog) PendingTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, question, direction, entry_price, size, shares,
		       edge_pct, confidence, tier, paper, opened_at, expires_at
		FROM trades
		WHERE status = ?
		ORDER BY opened_at ASC`,
		string(domain.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.PendingTrades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var direction, tier, openedAt, expiresAt string
		var paper int

		if err := rows.Scan(&t.ID, &t.MarketID, &t.Question, &direction,
			&t.EntryPrice, &t.Size, &t.Shares, &t.EdgePct, &t.Confidence,
			&tier, &paper, &openedAt, &expiresAt); err != nil {
			slog.Warn("storage: quarantining unreadable trade row", "err", err)
			continue
		}

		opened, err := time.Parse(time.RFC3339, openedAt)
		if err != nil {
			slog.Warn("storage: quarantining trade with bad opened_at",
				"trade_id", t.ID, "err", err)
			continue
		}
		expires, err := time.Parse(time.RFC3339, expiresAt)
		if err != nil {
			slog.Warn("storage: quarantining trade with bad expires_at",
				"trade_id", t.ID, "err", err)
			continue
		}

		t.Direction = domain.Direction(direction)
		t.Tier = domain.Tier(tier)
		t.Paper = paper == 1
		t.OpenedAt = opened
		t.ExpiresAt = expires
		t.Status = domain.StatusPending
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// RecentOutcomes returns the newest resolved outcomes in chronological
// order, for restoring the survival brain after a restart.
func (s *SQLiteLog) RecentOutcomes(ctx context.Context, limit int) ([]domain.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, won, pnl, resolved_at
		FROM trades
		WHERE status = ?
		ORDER BY resolved_at DESC
		LIMIT ?`,
		string(domain.StatusResolved), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentOutcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		var won int
		var resolvedAt string
		if err := rows.Scan(&o.TradeID, &won, &o.PnL, &resolvedAt); err != nil {
			slog.Warn("storage: quarantining unreadable outcome row", "err", err)
			continue
		}
		at, err := time.Parse(time.RFC3339, resolvedAt)
		if err != nil {
			slog.Warn("storage: quarantining outcome with bad resolved_at",
				"trade_id", o.TradeID, "err", err)
			continue
		}
		o.Won = won == 1
		o.RecordedAt = at
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; the brain wants oldest-first.
	for i, j := 0, len(outcomes)-1; i < j; i, j = i+1, j-1 {
		outcomes[i], outcomes[j] = outcomes[j], outcomes[i]
	}
	return outcomes, nil
}
