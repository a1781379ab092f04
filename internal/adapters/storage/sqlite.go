package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id               TEXT PRIMARY KEY,
    market_id        TEXT NOT NULL,
    question         TEXT,
    direction        TEXT NOT NULL,
    entry_price      REAL NOT NULL,
    size             REAL NOT NULL,
    shares           REAL NOT NULL,
    edge_pct         REAL NOT NULL DEFAULT 0,
    confidence       REAL NOT NULL DEFAULT 0,
    tier             TEXT NOT NULL DEFAULT 'HEALTHY',
    paper            INTEGER NOT NULL DEFAULT 1,
    opened_at        DATETIME NOT NULL,
    expires_at       DATETIME NOT NULL,
    status           TEXT NOT NULL DEFAULT 'PENDING',
    resolved_at      DATETIME,
    resolution_price REAL NOT NULL DEFAULT 0,
    pnl              REAL NOT NULL DEFAULT 0,
    won              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_summaries (
    run_id       TEXT PRIMARY KEY,
    mode         TEXT NOT NULL,
    started_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL,
    trades       INTEGER NOT NULL DEFAULT 0,
    wins         INTEGER NOT NULL DEFAULT 0,
    losses       INTEGER NOT NULL DEFAULT 0,
    win_rate     REAL NOT NULL DEFAULT 0,
    total_pnl    REAL NOT NULL DEFAULT 0,
    capital      REAL NOT NULL DEFAULT 0,
    tier_changes TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_trades_status   ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_market   ON trades(market_id);
CREATE INDEX IF NOT EXISTS idx_trades_resolved ON trades(resolved_at DESC);
`

// SQLiteLog implements ports.TradeLog on SQLite (pure Go, no CGo). Each
// trade is one row, written by single statements, so a record is either
// fully present or absent.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens (or creates) the database at the given path and
// applies the schema.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLog: open %q: %w", path, err)
	}
	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteLog{db: db}
	if err := s.ApplySchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ApplySchema creates the tables if they don't exist.
func (s *SQLiteLog) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage.ApplySchema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteLog) Close() error {
	return s.db.Close()
}
