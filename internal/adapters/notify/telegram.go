package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dnieto/quickedge/internal/domain"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends HTML alerts to a chat, at most one per category per
// configured interval. Critical events (tier changes, summaries) bypass
// the limit.
type Telegram struct {
	apiBase  string
	token    string
	chatID   string
	interval time.Duration
	http     *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time

	sent        int
	rateLimited int
	failed      int
}

// NewTelegram creates the sink. Token and chat id must both be set;
// callers should fall back to a console notifier when they are not.
func NewTelegram(token, chatID string, interval time.Duration) *Telegram {
	return &Telegram{
		apiBase:  telegramAPIBase,
		token:    token,
		chatID:   chatID,
		interval: interval,
		http:     &http.Client{Timeout: 10 * time.Second},
		lastSent: make(map[string]time.Time),
	}
}

// TradeOpened announces a new position.
func (t *Telegram) TradeOpened(ctx context.Context, tr domain.Trade) error {
	mode := "LIVE"
	if tr.Paper {
		mode = "PAPER"
	}
	msg := fmt.Sprintf(
		"📊 <b>%s TRADE OPENED</b>\n\nBUY <b>%s</b> @ <b>%.4f</b> (edge %.2f%%)\nSize: <b>$%.2f</b> (%.2f shares)\nTier: %s\n<code>%s</code>",
		mode, tr.Direction, tr.EntryPrice, tr.EdgePct, tr.Size, tr.Shares, tr.Tier, tr.ID,
	)
	return t.send(ctx, "trade_open", msg, false)
}

// TradeResolved announces a settlement with the brain's running state.
func (t *Telegram) TradeResolved(ctx context.Context, tr domain.Trade, snap domain.SurvivalSnapshot) error {
	icon := "✅ WIN"
	if !tr.Won {
		icon = "❌ LOSS"
	}
	sign := "+"
	if tr.PnL < 0 {
		sign = ""
	}
	msg := fmt.Sprintf(
		"%s <b>TRADE RESOLVED</b>\n\nEntry %s @ %.4f → %.4f\nPnL: <b>%s$%.2f</b>\n\nCapital: $%.2f | Win rate: %.1f%% | Tier: %s\n<code>%s</code>",
		icon, tr.Direction, tr.EntryPrice, tr.ResolutionPrice,
		sign, tr.PnL, snap.Capital, snap.WinRate*100, snap.Tier, tr.ID,
	)
	return t.send(ctx, "trade_resolve", msg, false)
}

// TierChanged announces a risk-posture transition. Always delivered.
func (t *Telegram) TierChanged(ctx context.Context, change domain.TierChange) error {
	msg := fmt.Sprintf(
		"🔄 <b>SURVIVAL TIER CHANGE</b>\n\n<b>%s</b> → <b>%s</b>\n%s",
		change.From, change.To, change.Reason,
	)
	return t.send(ctx, "tier_change", msg, true)
}

// Summary sends the run aggregate. Always delivered.
func (t *Telegram) Summary(ctx context.Context, s domain.RunSummary) error {
	sign := "+"
	if s.TotalPnL < 0 {
		sign = ""
	}
	msg := fmt.Sprintf(
		"📈 <b>RUN SUMMARY (%s)</b>\n\nTrades: %d (W:%d L:%d, %.1f%%)\nPnL: <b>%s$%.2f</b>\nCapital: $%.2f\nTier changes: %d",
		s.Mode, s.Trades, s.Wins, s.Losses, s.WinRate*100,
		sign, s.TotalPnL, s.Capital, len(s.TierChanges),
	)
	return t.send(ctx, "summary", msg, true)
}

// send delivers one message, applying the per-category rate limit unless
// forced. A dropped or failed send is never surfaced as an error to the
// decision path.
func (t *Telegram) send(ctx context.Context, category, text string, force bool) error {
	if !force && !t.allow(category) {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("notify.send: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		t.recordFailure()
		slog.Warn("telegram: send failed", "category", category, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		t.recordFailure()
		slog.Warn("telegram: send rejected", "category", category, "status", resp.StatusCode)
		return nil
	}

	t.mu.Lock()
	t.sent++
	t.mu.Unlock()
	return nil
}

// allow checks and updates the per-category rate limit.
func (t *Telegram) allow(category string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if last, ok := t.lastSent[category]; ok && now.Sub(last) < t.interval {
		t.rateLimited++
		return false
	}
	t.lastSent[category] = now
	return true
}

func (t *Telegram) recordFailure() {
	t.mu.Lock()
	t.failed++
	t.mu.Unlock()
}

// Stats returns sent/rate-limited/failed counters for logging.
func (t *Telegram) Stats() (sent, rateLimited, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent, t.rateLimited, t.failed
}
