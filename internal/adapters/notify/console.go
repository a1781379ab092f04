package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dnieto/quickedge/internal/domain"
)

// Console implements ports.Notifier on stdout. Trade events print as
// compact one-liners; the run summary prints as a table.
type Console struct {
	out io.Writer
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) TradeOpened(_ context.Context, t domain.Trade) error {
	mode := "live"
	if t.Paper {
		mode = "paper"
	}
	fmt.Fprintf(c.out, "[%s] OPEN  %s %s $%.2f @ %.4f edge=%.2f%% tier=%s %s\n",
		time.Now().Format("15:04:05"), mode, t.Direction, t.Size,
		t.EntryPrice, t.EdgePct, t.Tier, shortID(t.ID))
	return nil
}

func (c *Console) TradeResolved(_ context.Context, t domain.Trade, snap domain.SurvivalSnapshot) error {
	result := "WIN "
	if !t.Won {
		result = "LOSS"
	}
	fmt.Fprintf(c.out, "[%s] %s %s pnl=%+.2f capital=%.2f wr=%.0f%% tier=%s %s\n",
		time.Now().Format("15:04:05"), result, t.Direction, t.PnL,
		snap.Capital, snap.WinRate*100, snap.Tier, shortID(t.ID))
	return nil
}

func (c *Console) TierChanged(_ context.Context, change domain.TierChange) error {
	fmt.Fprintf(c.out, "[%s] TIER %s -> %s (%s)\n",
		time.Now().Format("15:04:05"), change.From, change.To, change.Reason)
	return nil
}

// Summary prints the run aggregate as a table.
func (c *Console) Summary(_ context.Context, s domain.RunSummary) error {
	fmt.Fprintf(c.out, "\n[%s] run summary (%s)\n", time.Now().Format("15:04:05"), s.Mode)

	table := tablewriter.NewWriter(c.out)
	table.Header("Trades", "Wins", "Losses", "Win rate", "PnL", "Capital", "Tier changes")
	table.Append(
		fmt.Sprintf("%d", s.Trades),
		fmt.Sprintf("%d", s.Wins),
		fmt.Sprintf("%d", s.Losses),
		fmt.Sprintf("%.1f%%", s.WinRate*100),
		fmt.Sprintf("%+.2f", s.TotalPnL),
		fmt.Sprintf("%.2f", s.Capital),
		fmt.Sprintf("%d", len(s.TierChanges)),
	)
	table.Render()

	for _, tc := range s.TierChanges {
		fmt.Fprintf(c.out, "  %s  %s -> %s (%s)\n",
			tc.At.Format("15:04:05"), tc.From, tc.To, tc.Reason)
	}
	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
