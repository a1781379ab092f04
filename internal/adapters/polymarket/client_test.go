package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnieto/quickedge/internal/domain"
)

func marketJSON(id string, expiresAt time.Time) string {
	return fmt.Sprintf(`{
		"id": %q,
		"question": "Will BTC be above $95,000 at 14:30 UTC?",
		"baseline_price": 95000,
		"yes_price": 0.45,
		"no_price": 0.55,
		"created_at": %q,
		"end_date": %q
	}`, id, time.Now().UTC().Format(time.RFC3339), expiresAt.UTC().Format(time.RFC3339))
}

func TestActiveMarketsFetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/markets", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("active"))
		fmt.Fprintf(w, "[%s]", marketJSON("m1", time.Now().Add(10*time.Minute)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute)

	markets, err := c.ActiveMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].ID)
	assert.Equal(t, 95000.0, markets[0].BaselinePrice)
	assert.Equal(t, 0.45, markets[0].YesPrice)

	// Within the TTL the cache answers.
	_, err = c.ActiveMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestActiveMarketsFiltersExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "[%s,%s]",
			marketJSON("open", time.Now().Add(10*time.Minute)),
			marketJSON("closed", time.Now().Add(-10*time.Minute)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute)
	markets, err := c.ActiveMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "open", markets[0].ID)
}

func TestActiveMarketsServesStaleCacheOnFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, "[%s]", marketJSON("m1", time.Now().Add(10*time.Minute)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Nanosecond) // TTL expires immediately

	_, err := c.ActiveMarkets(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	time.Sleep(time.Millisecond)

	markets, err := c.ActiveMarkets(context.Background())
	require.NoError(t, err, "stale cache covers a venue outage")
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].ID)
}

func TestPlaceOrderMatched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"order_id":"o1","status":"matched","filled_price":0.46,"filled_size":5}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Minute)
	ack, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		MarketID:  "m1",
		Direction: domain.DirectionYes,
		Price:     0.45,
		Size:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", ack.OrderID)
	assert.Equal(t, 0.46, ack.FilledPrice)
	assert.Equal(t, 5.0, ack.FilledSize)
}

func TestPlaceOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"rejected","reason":"insufficient liquidity"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Minute)
	_, err := c.PlaceOrder(context.Background(), domain.OrderRequest{MarketID: "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient liquidity")
}

func TestSettle(t *testing.T) {
	resolved := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets/m1/resolution", r.URL.Path)
		if resolved {
			fmt.Fprint(w, `{"resolved":true,"outcome":"YES"}`)
		} else {
			fmt.Fprint(w, `{"resolved":false}`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute)
	trade := domain.Trade{MarketID: "m1"}

	s, err := c.Settle(context.Background(), trade)
	require.NoError(t, err)
	assert.False(t, s.Resolved, "open market is not an error")

	resolved = true
	s, err = c.Settle(context.Background(), trade)
	require.NoError(t, err)
	require.True(t, s.Resolved)
	assert.True(t, s.YesOutcome)
	assert.Equal(t, 1.0, s.Price)
}

func TestRetryOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"resolved":false}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute)
	_, err := c.Settle(context.Background(), domain.Trade{MarketID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "5xx retried once then succeeded")
}

func TestNoRetryOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Nanosecond)
	_, err := c.Settle(context.Background(), domain.Trade{MarketID: "m1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "4xx must not be retried")
}
