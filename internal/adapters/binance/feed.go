package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dnieto/quickedge/internal/domain"
)

const reconnectDelay = time.Second

// Feed streams trades for a single symbol from the public Binance
// WebSocket and implements ports.PriceFeed. Delivery is through a bounded
// channel with a drop-oldest policy so a slow consumer never blocks the
// read loop.
type Feed struct {
	url        string
	symbol     string
	maxLatency time.Duration

	ticks chan domain.PriceTick

	mu      sync.Mutex
	latest  domain.PriceTick
	hasTick bool

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a feed for the given stream base URL and lowercase symbol
// (e.g. "btcusdt"). Ticks older than maxLatency at receipt are tagged
// stale but still delivered.
func New(url, symbol string, maxLatency time.Duration, buffer int) *Feed {
	return &Feed{
		url:        url,
		symbol:     symbol,
		maxLatency: maxLatency,
		ticks:      make(chan domain.PriceTick, buffer),
		done:       make(chan struct{}),
	}
}

// Start begins streaming. It returns immediately; connection and
// reconnection happen in the background until Stop or ctx cancellation.
func (f *Feed) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	go f.run(runCtx)
	return nil
}

// Ticks returns the delivery channel. Closed after the feed stops.
func (f *Feed) Ticks() <-chan domain.PriceTick {
	return f.ticks
}

// Latest returns the most recent tick, or false if none arrived yet.
func (f *Feed) Latest() (domain.PriceTick, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.hasTick
}

// Stop terminates the connection. Safe to call more than once.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
		<-f.done
		close(f.ticks)
	})
}

// run dials, reads until the connection drops, and reconnects with a
// fixed short backoff. Tick ordering across reconnects follows receipt
// order only.
func (f *Feed) run(ctx context.Context) {
	defer close(f.done)

	streamURL := fmt.Sprintf("%s/%s@trade", f.url, f.symbol)
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
		if err != nil {
			slog.Warn("feed: dial failed, retrying", "url", streamURL, "err", err)
			f.sleep(ctx)
			continue
		}
		slog.Info("feed: connected", "symbol", f.symbol)

		f.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		slog.Warn("feed: connection lost, reconnecting", "symbol", f.symbol)
		f.sleep(ctx)
	}
}

// readLoop consumes messages until a read error or ctx cancellation.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		tick, err := f.parseTrade(msg, time.Now())
		if err != nil {
			slog.Debug("feed: skipping unparseable message", "err", err)
			continue
		}
		f.publish(tick)
	}
}

// tradeMsg is the subset of the Binance trade event the feed consumes.
type tradeMsg struct {
	Event     string `json:"e"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"` // epoch millis
}

// parseTrade converts a raw stream message into a PriceTick, tagging it
// stale when receipt minus trade time exceeds the configured ceiling.
func (f *Feed) parseTrade(msg []byte, receivedAt time.Time) (domain.PriceTick, error) {
	var m tradeMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return domain.PriceTick{}, fmt.Errorf("binance.parseTrade: %w", err)
	}
	if m.Event != "trade" {
		return domain.PriceTick{}, fmt.Errorf("binance.parseTrade: unexpected event %q", m.Event)
	}
	price, err := strconv.ParseFloat(m.Price, 64)
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("binance.parseTrade: price %q: %w", m.Price, err)
	}

	tick := domain.PriceTick{
		Price:       price,
		SourceTime:  time.UnixMilli(m.TradeTime),
		ReceiptTime: receivedAt,
	}
	tick.Stale = tick.Latency() > f.maxLatency
	return tick, nil
}

// publish records the latest tick and pushes it to the channel, dropping
// the oldest buffered tick when the consumer is behind.
func (f *Feed) publish(tick domain.PriceTick) {
	f.mu.Lock()
	f.latest = tick
	f.hasTick = true
	f.mu.Unlock()

	select {
	case f.ticks <- tick:
	default:
		select {
		case <-f.ticks:
		default:
		}
		select {
		case f.ticks <- tick:
		default:
		}
	}
}

// sleep waits the reconnect delay, respecting the context.
func (f *Feed) sleep(ctx context.Context) {
	select {
	case <-time.After(reconnectDelay):
	case <-ctx.Done():
	}
}
