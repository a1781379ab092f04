package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

// SaveSummary upserts the per-run aggregate record.
func (s *SQLiteLog) SaveSummary(ctx context.Context, sum domain.RunSummary) error {
	changes, err := json.Marshal(sum.TierChanges)
	if err != nil {
		return fmt.Errorf("storage.SaveSummary: marshal tier changes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_summaries
			(run_id, mode, started_at, updated_at, trades, wins, losses,
			 win_rate, total_pnl, capital, tier_changes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			updated_at   = excluded.updated_at,
			trades       = excluded.trades,
			wins         = excluded.wins,
			losses       = excluded.losses,
			win_rate     = excluded.win_rate,
			total_pnl    = excluded.total_pnl,
			capital      = excluded.capital,
			tier_changes = excluded.tier_changes`,
		sum.RunID, sum.Mode,
		sum.StartedAt.UTC().Format(time.RFC3339),
		sum.UpdatedAt.UTC().Format(time.RFC3339),
		sum.Trades, sum.Wins, sum.Losses,
		sum.WinRate, sum.TotalPnL, sum.Capital, string(changes),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSummary: %w", err)
	}
	return nil
}

// GetSummary loads a run summary by id, or false when absent.
func (s *SQLiteLog) GetSummary(ctx context.Context, runID string) (domain.RunSummary, bool, error) {
	var sum domain.RunSummary
	var startedAt, updatedAt, changes string

	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, mode, started_at, updated_at, trades, wins, losses,
		       win_rate, total_pnl, capital, tier_changes
		FROM run_summaries WHERE run_id = ?`, runID,
	).Scan(&sum.RunID, &sum.Mode, &startedAt, &updatedAt, &sum.Trades,
		&sum.Wins, &sum.Losses, &sum.WinRate, &sum.TotalPnL, &sum.Capital, &changes)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSummary{}, false, nil
	}
	if err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("storage.GetSummary: %w", err)
	}

	sum.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	sum.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	_ = json.Unmarshal([]byte(changes), &sum.TierChanges)
	return sum, true, nil
}
